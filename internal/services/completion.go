package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LatestCompletion selects the authoritative completion record from the set
// recorded for one (template, period) pair. Correct upsert discipline keeps
// the set at one record, but duplicates from racing submissions are tolerated
// here: the record with the latest completion timestamp wins, falling back to
// the update timestamp when CompletedAt is unset.
func LatestCompletion(completions []core.Entry) (core.Entry, bool) {
	var best core.Entry
	found := false
	for _, c := range completions {
		if !found || completionOrder(c).After(completionOrder(best)) {
			best = c
			found = true
		}
	}
	return best, found
}

func completionOrder(c core.Entry) time.Time {
	if !c.CompletedAt.IsZero() {
		return c.CompletedAt
	}
	return c.UpdatedAt
}

// EffectiveAmount resolves the amount a due occurrence counts for: the
// authoritative completion's actual amount when one exists, otherwise the
// template amount unmodified.
func EffectiveAmount(tpl core.Entry, completions []core.Entry) decimal.Decimal {
	if latest, ok := LatestCompletion(completions); ok {
		return latest.Amount
	}
	return tpl.Amount
}

// CompletionService owns the engine's two write paths: recording that a due
// occurrence was fulfilled at an actual amount, and reverting that record.
// Dueness preconditions are the caller's job; this service does not re-check
// cadence arithmetic.
type CompletionService struct {
	store  Store
	events EventPublisher
}

func NewCompletionService(store Store, events EventPublisher) *CompletionService {
	return &CompletionService{store: store, events: events}
}

// MarkCompleted upserts the completion record for (template, year/month) with
// the actual amount. Calling it again for the same period updates the
// existing record in place rather than creating a second one.
func (s *CompletionService) MarkCompleted(ctx context.Context, tpl core.Entry, year, month int, amount decimal.Decimal) (core.Entry, error) {
	if !core.ValidMonth(month) {
		return core.Entry{}, core.ErrInvalidMonth
	}
	if !amount.IsPositive() {
		return core.Entry{}, core.ErrInvalidAmount
	}

	period := core.MonthStart(year, month)
	completion, err := s.store.UpsertCompletion(ctx, tpl, period, amount, time.Now().UTC())
	if err != nil {
		return core.Entry{}, fmt.Errorf("upsert completion: %w", err)
	}

	s.publish(ctx, tpl.UserID, "completion_marked", tpl.ID, year, month)

	slog.InfoContext(ctx, "Recurring occurrence marked completed",
		"template_id", tpl.ID,
		"period", period.Format("2006-01"),
		"amount", amount)

	return completion, nil
}

// RevertCompletion soft-deletes the completion for (template, year/month).
// Reverting a period that was never completed is a no-op.
func (s *CompletionService) RevertCompletion(ctx context.Context, userID string, templateID uuid.UUID, year, month int) error {
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}

	period := core.MonthStart(year, month)
	if err := s.store.SoftDeleteCompletion(ctx, userID, templateID, period); err != nil {
		return fmt.Errorf("soft delete completion: %w", err)
	}

	s.publish(ctx, userID, "completion_reverted", templateID, year, month)

	slog.InfoContext(ctx, "Recurring completion reverted",
		"template_id", templateID,
		"period", period.Format("2006-01"))

	return nil
}

// MarkAllCompleted completes every active template that is due in the month
// and has no completion yet, at its template amount. Already-completed
// templates are skipped, which makes retrying the whole batch safe.
func (s *CompletionService) MarkAllCompleted(ctx context.Context, userID string, year, month int) (int, error) {
	if !core.ValidMonth(month) {
		return 0, core.ErrInvalidMonth
	}

	templates, err := s.store.ListRecurringTemplates(ctx, userID, TemplateFilter{ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	period := core.MonthStart(year, month)
	ids := make([]uuid.UUID, len(templates))
	for i, tpl := range templates {
		ids[i] = tpl.ID
	}
	existing, err := s.store.ListCompletions(ctx, userID, ids, period)
	if err != nil {
		return 0, fmt.Errorf("list completions: %w", err)
	}
	completedParents := make(map[uuid.UUID]bool, len(existing))
	for _, c := range existing {
		completedParents[c.ParentID] = true
	}

	now := time.Now().UTC()
	var batch []core.Entry
	for _, tpl := range templates {
		if completedParents[tpl.ID] || !IsDueInMonth(tpl, year, month) {
			continue
		}
		batch = append(batch, NewCompletionRecord(tpl, period, tpl.Amount, now))
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.store.InsertCompletions(ctx, batch); err != nil {
		return 0, fmt.Errorf("insert completions: %w", err)
	}

	s.publish(ctx, userID, "completions_marked_all", uuid.Nil, year, month)

	slog.InfoContext(ctx, "Marked all due recurring items completed",
		"period", period.Format("2006-01"),
		"count", len(batch))

	return len(batch), nil
}

// NewCompletionRecord shapes a completion entry from its parent template.
// Completions share the one-time storage shape but carry the completion role
// so they never feed dueness or balance arithmetic.
func NewCompletionRecord(tpl core.Entry, period core.Date, amount decimal.Decimal, completedAt time.Time) core.Entry {
	return core.Entry{
		ID:                  uuid.New(),
		UserID:              tpl.UserID,
		Title:               tpl.Title,
		Amount:              amount,
		Kind:                tpl.Kind,
		Schedule:            core.OneTime,
		Date:                period,
		CategoryID:          tpl.CategoryID,
		PaidFromAccountID:   tpl.PaidFromAccountID,
		ReceivedToAccountID: tpl.ReceivedToAccountID,
		ParentID:            tpl.ID,
		RecurrenceGroupID:   tpl.RecurrenceGroupID,
		Role:                core.RoleCompletion,
		Completed:           true,
		CompletedAt:         completedAt,
	}
}

func (s *CompletionService) publish(ctx context.Context, userID, action string, entryID uuid.UUID, year, month int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEntryEvent(ctx, userID, action, entryID, year, month); err != nil {
		// Writes succeeded; the event stream is best-effort.
		slog.WarnContext(ctx, "Failed to publish entry event",
			"action", action, "entry_id", entryID, "error", err)
	}
}
