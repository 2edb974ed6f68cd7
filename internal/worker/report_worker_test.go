package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hisab/internal/amqp"
	"hisab/internal/core"
	"hisab/internal/services"
	"hisab/internal/sheets/memory"
	"hisab/internal/storage"
)

func newTestWorker(t *testing.T) (*ReportWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "hisab.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	reports := memory.New()
	w := NewReportWorker(services.NewMonthlyAggregator(repo), reports, 10, time.Second)
	return w, repo, reports
}

func seedEntry(t *testing.T, repo *storage.SQLiteRepository, userID string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	e := core.Entry{
		ID:                uuid.New(),
		UserID:            userID,
		Title:             "Groceries",
		Amount:            decimal.RequireFromString("120.50"),
		Kind:              core.Expense,
		Schedule:          core.OneTime,
		Date:              core.NewDate(2026, 3, 14),
		Role:              core.RoleStandard,
		PaidFromAccountID: uuid.New(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repo.InsertEntry(context.Background(), e); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}
}

func TestHandleEntryEventQueuesAndFlushWrites(t *testing.T) {
	w, repo, reports := newTestWorker(t)
	ctx := context.Background()
	seedEntry(t, repo, "u1")

	msg := amqp.NewEntryEventMessage("u1", "entry_created", uuid.New(), 2026, 3)
	if err := w.HandleEntryEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEntryEvent() error = %v", err)
	}

	// Nothing written until a flush runs
	if n := len(reports.Reports()); n != 0 {
		t.Fatalf("got %d reports before flush, want 0", n)
	}

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got := reports.Reports()
	if len(got) != 1 {
		t.Fatalf("got %d reports after flush, want 1", len(got))
	}
	if got[0].UserID != "u1" || got[0].View.Year != 2026 || got[0].View.Month != 3 {
		t.Errorf("report period = %s %d-%d", got[0].UserID, got[0].View.Year, got[0].View.Month)
	}
	if !got[0].View.TotalExpense.Equal(decimal.RequireFromString("120.5")) {
		t.Errorf("TotalExpense = %s, want 120.5", got[0].View.TotalExpense)
	}
}

func TestHandleEntryEventCoalescesSamePeriod(t *testing.T) {
	w, repo, reports := newTestWorker(t)
	ctx := context.Background()
	seedEntry(t, repo, "u1")

	for i := 0; i < 5; i++ {
		msg := amqp.NewEntryEventMessage("u1", "entry_updated", uuid.New(), 2026, 3)
		if err := w.HandleEntryEvent(ctx, msg); err != nil {
			t.Fatalf("HandleEntryEvent() error = %v", err)
		}
	}

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(reports.Reports()); n != 1 {
		t.Errorf("got %d reports, want 1 for a burst on the same period", n)
	}

	// A second flush with nothing pending writes nothing
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(reports.Reports()); n != 1 {
		t.Errorf("got %d reports after idle flush, want 1", n)
	}
}

func TestHandleEntryEventRejectsBadMessages(t *testing.T) {
	w, _, _ := newTestWorker(t)
	ctx := context.Background()

	if err := w.HandleEntryEvent(ctx, amqp.NewEntryEventMessage("", "entry_created", uuid.New(), 2026, 3)); err == nil {
		t.Error("expected error for missing user")
	}
	if err := w.HandleEntryEvent(ctx, amqp.NewEntryEventMessage("u1", "entry_created", uuid.New(), 2026, 13)); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestFlushRespectsBatchSize(t *testing.T) {
	w, repo, reports := newTestWorker(t)
	w.batchSize = 2
	ctx := context.Background()
	seedEntry(t, repo, "u1")

	for month := 1; month <= 3; month++ {
		msg := amqp.NewEntryEventMessage("u1", "entry_created", uuid.New(), 2026, month)
		if err := w.HandleEntryEvent(ctx, msg); err != nil {
			t.Fatalf("HandleEntryEvent() error = %v", err)
		}
	}

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(reports.Reports()); n != 2 {
		t.Fatalf("got %d reports, want batch of 2", n)
	}

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(reports.Reports()); n != 3 {
		t.Errorf("got %d reports after second flush, want 3", n)
	}
}

func TestStartupSyncQueuesRecentMonths(t *testing.T) {
	w, repo, reports := newTestWorker(t)
	ctx := context.Background()
	seedEntry(t, repo, "u1")

	w.StartupSync(ctx, "u1")

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := len(reports.Reports()); n != 2 {
		t.Errorf("got %d reports, want current and previous month", n)
	}
}
