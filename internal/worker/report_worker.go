package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"hisab/internal/amqp"
	"hisab/internal/core"
	"hisab/internal/log"
	"hisab/internal/services"
	"hisab/internal/sheets"
)

// ReportWorker rebuilds monthly reports when entries change and appends them
// to the configured report sheet. Events only mark a period dirty; the actual
// rebuild happens on the flush ticker so a burst of edits to the same month
// produces a single report row.
type ReportWorker struct {
	months    *services.MonthlyAggregator
	reports   sheets.ReportWriter
	batchSize int
	interval  time.Duration

	mu    sync.Mutex
	dirty map[periodKey]struct{}
}

type periodKey struct {
	userID string
	year   int
	month  int
}

func NewReportWorker(months *services.MonthlyAggregator, reports sheets.ReportWriter, batchSize int, interval time.Duration) *ReportWorker {
	return &ReportWorker{
		months:    months,
		reports:   reports,
		batchSize: batchSize,
		interval:  interval,
		dirty:     make(map[periodKey]struct{}),
	}
}

// HandleEntryEvent processes a single entry event from AMQP
func (w *ReportWorker) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEventMessage) error {
	if msg.UserID == "" {
		return fmt.Errorf("entry event without user")
	}
	if !core.ValidMonth(msg.Month) {
		return fmt.Errorf("entry event with invalid month %d: %w", msg.Month, core.ErrInvalidMonth)
	}

	w.markDirty(periodKey{userID: msg.UserID, year: msg.Year, month: msg.Month})

	slog.DebugContext(ctx, "Queued period for report rebuild",
		log.FieldUserID, msg.UserID,
		"action", msg.Action,
		log.FieldEntryID, msg.EntryID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month)

	return nil
}

func (w *ReportWorker) markDirty(key periodKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty[key] = struct{}{}
}

// takeDirty removes and returns up to batchSize pending periods in a stable order
func (w *ReportWorker) takeDirty() []periodKey {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make([]periodKey, 0, len(w.dirty))
	for key := range w.dirty {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.userID != b.userID {
			return a.userID < b.userID
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})

	if len(keys) > w.batchSize {
		keys = keys[:w.batchSize]
	}
	for _, key := range keys {
		delete(w.dirty, key)
	}
	return keys
}

// Flush rebuilds every pending period and appends the reports. Periods that
// fail are re-queued for the next flush.
func (w *ReportWorker) Flush(ctx context.Context) error {
	keys := w.takeDirty()
	if len(keys) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Rebuilding monthly reports", "count", len(keys))

	var firstErr error
	for _, key := range keys {
		if err := w.rebuildPeriod(ctx, key); err != nil {
			slog.ErrorContext(ctx, "Failed to rebuild report",
				log.FieldUserID, key.userID,
				log.FieldYear, key.year,
				log.FieldMonth, key.month,
				log.FieldError, err)
			w.markDirty(key)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *ReportWorker) rebuildPeriod(ctx context.Context, key periodKey) error {
	view, err := w.months.BuildMonth(ctx, key.userID, key.year, key.month)
	if err != nil {
		return fmt.Errorf("build month view: %w", err)
	}

	ref, err := w.reports.AppendMonthReport(ctx, key.userID, view)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}

	slog.InfoContext(ctx, "Report written",
		log.FieldUserID, key.userID,
		log.FieldYear, key.year,
		log.FieldMonth, key.month,
		log.FieldSheetsRef, ref)

	return nil
}

// Run flushes pending periods on the configured interval until the context is
// cancelled. A final flush runs on shutdown so queued periods are not lost.
func (w *ReportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := w.Flush(flushCtx); err != nil {
				slog.ErrorContext(flushCtx, "Final report flush failed", log.FieldError, err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				slog.ErrorContext(ctx, "Report flush failed", log.FieldError, err)
			}
		}
	}
}

// StartupSync queues the current and previous month for the given user so the
// report catches up after worker downtime.
func (w *ReportWorker) StartupSync(ctx context.Context, userID string) {
	now := time.Now()
	prev := now.AddDate(0, -1, 0)

	w.markDirty(periodKey{userID: userID, year: now.Year(), month: int(now.Month())})
	w.markDirty(periodKey{userID: userID, year: prev.Year(), month: int(prev.Month())})

	slog.InfoContext(ctx, "Queued startup report sync",
		log.FieldUserID, userID,
		"current", fmt.Sprintf("%d-%02d", now.Year(), int(now.Month())),
		"previous", fmt.Sprintf("%d-%02d", prev.Year(), int(prev.Month())))
}
