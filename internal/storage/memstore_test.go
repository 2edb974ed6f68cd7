package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"hisab/internal/core"
	"hisab/internal/services"

	"github.com/google/uuid"
)

func TestMemoryStoreSeedsCategories(t *testing.T) {
	store := NewMemoryStore()

	categories, err := store.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != 15 {
		t.Fatalf("len(categories) = %d, want 15", len(categories))
	}

	var expense, income int
	for _, c := range categories {
		if !c.System {
			t.Errorf("category %s is not system", c.Name)
		}
		switch c.Type {
		case core.Expense:
			expense++
		case core.Income:
			income++
		}
	}
	if expense != 10 || income != 5 {
		t.Errorf("expense/income = %d/%d, want 10/5", expense, income)
	}
}

func TestMemoryStoreUserScopingAndSoftDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry := testEntry("u1")
	if err := store.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	if _, err := store.GetEntry(ctx, "u2", entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign user GetEntry() error = %v, want ErrNotFound", err)
	}

	if err := store.SoftDeleteEntry(ctx, "u1", entry.ID); err != nil {
		t.Fatalf("SoftDeleteEntry() error = %v", err)
	}
	if _, err := store.GetEntry(ctx, "u1", entry.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry() after delete error = %v, want ErrNotFound", err)
	}

	listed, err := store.ListOneTimeEntries(ctx, "u1", services.OneTimeFilter{})
	if err != nil {
		t.Fatalf("ListOneTimeEntries() error = %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("len(listed) = %d, want 0", len(listed))
	}
}

func TestMemoryStoreDeleteTemplateCascadesCompletions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tpl := testTemplate("u1")
	if err := store.InsertEntry(ctx, tpl); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	period := core.MonthStart(2026, 3)
	if _, err := store.UpsertCompletion(ctx, tpl, period, dec("830"), time.Now().UTC()); err != nil {
		t.Fatalf("UpsertCompletion() error = %v", err)
	}

	if err := store.SoftDeleteEntry(ctx, "u1", tpl.ID); err != nil {
		t.Fatalf("SoftDeleteEntry() error = %v", err)
	}

	completions, err := store.ListCompletions(ctx, "u1", []uuid.UUID{tpl.ID}, period)
	if err != nil {
		t.Fatalf("ListCompletions() error = %v", err)
	}
	if len(completions) != 0 {
		t.Errorf("len(completions) = %d, want 0 after cascade", len(completions))
	}
}

func TestMemoryStoreUpsertCompletionUpdatesInPlace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tpl := testTemplate("u1")
	if err := store.InsertEntry(ctx, tpl); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	period := core.MonthStart(2026, 3)
	first, err := store.UpsertCompletion(ctx, tpl, period, dec("830"), time.Now().UTC())
	if err != nil {
		t.Fatalf("first UpsertCompletion() error = %v", err)
	}
	second, err := store.UpsertCompletion(ctx, tpl, period, dec("820"), time.Now().UTC())
	if err != nil {
		t.Fatalf("second UpsertCompletion() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("upsert created a second record: %s vs %s", first.ID, second.ID)
	}
	if !second.Amount.Equal(dec("820")) {
		t.Errorf("Amount = %s, want 820", second.Amount)
	}

	completions, err := store.ListCompletions(ctx, "u1", []uuid.UUID{tpl.ID}, period)
	if err != nil {
		t.Fatalf("ListCompletions() error = %v", err)
	}
	if len(completions) != 1 {
		t.Errorf("len(completions) = %d, want 1", len(completions))
	}
}

func TestMemoryStoreCategoryNameJoined(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	categories, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	var groceries core.Category
	for _, c := range categories {
		if c.Name == "Groceries" {
			groceries = c
		}
	}
	if groceries.ID == uuid.Nil {
		t.Fatal("Groceries category missing from seed")
	}

	entry := testEntry("u1")
	entry.CategoryID = groceries.ID
	if err := store.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	got, err := store.GetEntry(ctx, "u1", entry.ID)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if got.CategoryName != "Groceries" {
		t.Errorf("CategoryName = %q, want Groceries", got.CategoryName)
	}
}
