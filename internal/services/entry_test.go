package services

import (
	"context"
	"errors"
	"testing"

	"hisab/internal/core"

	"github.com/google/uuid"
)

func TestEntryCreateOneTime(t *testing.T) {
	store := newFakeStore()
	events := &fakePublisher{}
	svc := NewEntryService(store, events)

	created, err := svc.Create(context.Background(), core.Entry{
		UserID:            "u1",
		Title:             "Groceries",
		Amount:            dec("74.30"),
		Kind:              core.Expense,
		Schedule:          core.OneTime,
		Date:              core.NewDate(2026, 3, 14),
		PaidFromAccountID: uuid.New(),
		// Leftover recurring fields must be cleared, not stored.
		Cadence:   core.Monthly,
		StartDate: core.NewDate(2026, 1, 1),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("Create() left ID unset")
	}
	if created.Cadence != "" || !created.StartDate.IsEmpty() {
		t.Errorf("one-time entry kept recurring fields: cadence=%q start=%v", created.Cadence, created.StartDate)
	}
	if len(events.actions) != 1 || events.actions[0] != "entry_created" {
		t.Errorf("published actions = %v, want [entry_created]", events.actions)
	}
}

func TestEntryCreateRecurringStartsGroup(t *testing.T) {
	store := newFakeStore()
	svc := NewEntryService(store, nil)

	created, err := svc.Create(context.Background(), core.Entry{
		UserID:            "u1",
		Title:             "Rent",
		Amount:            dec("850"),
		Kind:              core.Expense,
		Schedule:          core.Recurring,
		Cadence:           core.Monthly,
		StartDate:         core.NewDate(2026, 1, 1),
		PaidFromAccountID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.RecurrenceGroupID == uuid.Nil {
		t.Error("recurring entry has no recurrence group")
	}
	if !created.Active {
		t.Error("recurring entry not active on creation")
	}
}

func TestEntryCreateValidates(t *testing.T) {
	svc := NewEntryService(newFakeStore(), nil)
	_, err := svc.Create(context.Background(), core.Entry{
		UserID:   "u1",
		Title:    "  ",
		Amount:   dec("10"),
		Kind:     core.Income,
		Schedule: core.OneTime,
		Date:     core.NewDate(2026, 1, 1),
	})
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Errorf("Create() error = %v, want ErrEmptyTitle", err)
	}
}

func TestEntryUpdateFutureForksTheSeries(t *testing.T) {
	store := newFakeStore()
	svc := NewEntryService(store, nil)
	ctx := context.Background()

	original, err := svc.Create(ctx, core.Entry{
		UserID:            "u1",
		Title:             "Gym",
		Amount:            dec("40"),
		Kind:              core.Expense,
		Schedule:          core.Recurring,
		Cadence:           core.Monthly,
		StartDate:         core.NewDate(2026, 1, 10),
		EndDate:           core.NewDate(2026, 12, 10),
		PaidFromAccountID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	changes := original
	changes.Amount = dec("55")
	successor, err := svc.UpdateFuture(ctx, "u1", original.ID, changes, core.NewDate(2026, 5, 1))
	if err != nil {
		t.Fatalf("UpdateFuture() error = %v", err)
	}

	closed, err := store.GetTemplate(ctx, "u1", original.ID)
	if err != nil {
		t.Fatalf("GetTemplate(original) error = %v", err)
	}
	if want := core.NewDate(2026, 4, 30); !closed.EndDate.Equal(want.Time) {
		t.Errorf("closed template end = %v, want %v", closed.EndDate, want)
	}
	if !closed.Amount.Equal(dec("40")) {
		t.Errorf("closed template amount changed to %s", closed.Amount)
	}

	if successor.ID == original.ID {
		t.Error("successor reuses the original ID")
	}
	if successor.RecurrenceGroupID != original.RecurrenceGroupID {
		t.Error("successor left the recurrence group")
	}
	if want := core.NewDate(2026, 5, 1); !successor.StartDate.Equal(want.Time) {
		t.Errorf("successor start = %v, want %v", successor.StartDate, want)
	}
	if want := core.NewDate(2026, 12, 10); !successor.EndDate.Equal(want.Time) {
		t.Errorf("successor end = %v, want inherited %v", successor.EndDate, want)
	}
	if !successor.Amount.Equal(dec("55")) {
		t.Errorf("successor amount = %s, want 55", successor.Amount)
	}

	// Past months bill the old terms, the fork month bills the new ones.
	apr, _ := store.ListRecurringTemplates(ctx, "u1", TemplateFilter{
		OverlapStart: core.MonthStart(2026, 4),
		OverlapEnd:   core.MonthEnd(2026, 4),
	})
	if len(apr) != 1 || !apr[0].Amount.Equal(dec("40")) {
		t.Errorf("April templates = %+v, want only the 40 series", apr)
	}
	may, _ := store.ListRecurringTemplates(ctx, "u1", TemplateFilter{
		OverlapStart: core.MonthStart(2026, 5),
		OverlapEnd:   core.MonthEnd(2026, 5),
	})
	if len(may) != 1 || !may[0].Amount.Equal(dec("55")) {
		t.Errorf("May templates = %+v, want only the 55 series", may)
	}
}

func TestEntryUpdateFutureFromStartEditsInPlace(t *testing.T) {
	store := newFakeStore()
	svc := NewEntryService(store, nil)
	ctx := context.Background()

	original, err := svc.Create(ctx, core.Entry{
		UserID:            "u1",
		Title:             "Gym",
		Amount:            dec("40"),
		Kind:              core.Expense,
		Schedule:          core.Recurring,
		Cadence:           core.Monthly,
		StartDate:         core.NewDate(2026, 5, 1),
		PaidFromAccountID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	changes := original
	changes.Amount = dec("55")
	updated, err := svc.UpdateFuture(ctx, "u1", original.ID, changes, core.NewDate(2026, 5, 1))
	if err != nil {
		t.Fatalf("UpdateFuture() error = %v", err)
	}
	if updated.ID != original.ID {
		t.Error("edit from the series start should not fork")
	}

	templates, _ := store.ListRecurringTemplates(ctx, "u1", TemplateFilter{})
	if len(templates) != 1 {
		t.Errorf("template count = %d, want 1", len(templates))
	}
}

func TestEntryDeleteCascadesToCompletions(t *testing.T) {
	store := newFakeStore()
	tpl := store.addEntry(newTemplate("u1", "850"))
	completions := NewCompletionService(store, nil)
	ctx := context.Background()
	if _, err := completions.MarkCompleted(ctx, tpl, 2026, 3, dec("850")); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	svc := NewEntryService(store, nil)
	if err := svc.Delete(ctx, "u1", tpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.GetEntry(ctx, "u1", tpl.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted entry still readable, err = %v", err)
	}
	remaining, _ := store.ListCompletions(ctx, "u1", []uuid.UUID{tpl.ID}, core.MonthStart(2026, 3))
	if len(remaining) != 0 {
		t.Errorf("completions after template delete = %d, want 0", len(remaining))
	}
}

func TestEntryDeleteUnownedEntry(t *testing.T) {
	store := newFakeStore()
	tpl := store.addEntry(newTemplate("u1", "850"))
	svc := NewEntryService(store, nil)

	if err := svc.Delete(context.Background(), "u2", tpl.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}
}
