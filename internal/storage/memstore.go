package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hisab/internal/core"
	"hisab/internal/services"
)

// MemoryStore is an in-process implementation of services.Store. It mirrors
// the SQLite repository's semantics: soft deletes, user scoping, the category
// seed set, and stable result ordering. Data does not survive a restart; it
// exists for local runs and tests where a database file is unwanted.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]core.Entry
	accounts   map[uuid.UUID]core.Account
	categories []core.Category
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[uuid.UUID]core.Entry),
		accounts:   make(map[uuid.UUID]core.Account),
		categories: seedCategories(),
	}
}

// seedCategories matches the migration seed so both backends present the
// same taxonomy.
func seedCategories() []core.Category {
	expense := []string{
		"Housing", "Groceries", "Transport", "Utilities", "Health",
		"Entertainment", "Subscriptions", "Education", "Travel", "Other expenses",
	}
	income := []string{"Salary", "Freelance", "Investments", "Gifts", "Other income"}

	out := make([]core.Category, 0, len(expense)+len(income))
	for _, name := range expense {
		out = append(out, core.Category{ID: uuid.New(), Name: name, Type: core.Expense, System: true})
	}
	for _, name := range income {
		out = append(out, core.Category{ID: uuid.New(), Name: name, Type: core.Income, System: true})
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) categoryName(id uuid.UUID) string {
	for _, c := range m.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (m *MemoryStore) ListOneTimeEntries(_ context.Context, userID string, f services.OneTimeFilter) ([]core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.Entry
	for _, e := range m.entries {
		if e.Deleted || e.UserID != userID || e.Schedule != core.OneTime || e.Role != core.RoleStandard {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.PaidFrom != uuid.Nil && e.PaidFromAccountID != f.PaidFrom {
			continue
		}
		if f.ReceivedTo != uuid.Nil && e.ReceivedToAccountID != f.ReceivedTo {
			continue
		}
		if !f.From.IsEmpty() && e.Date.Before(f.From.Time) {
			continue
		}
		if !f.To.IsEmpty() && e.Date.After(f.To.Time) {
			continue
		}
		e.CategoryName = m.categoryName(e.CategoryID)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *MemoryStore) ListRecurringTemplates(_ context.Context, userID string, f services.TemplateFilter) ([]core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.Entry
	for _, e := range m.entries {
		if e.Deleted || e.UserID != userID || e.Schedule != core.Recurring || e.Role != core.RoleStandard {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.PaidFrom != uuid.Nil && e.PaidFromAccountID != f.PaidFrom {
			continue
		}
		if f.ReceivedTo != uuid.Nil && e.ReceivedToAccountID != f.ReceivedTo {
			continue
		}
		if f.ActiveOnly && !e.Active {
			continue
		}
		if !f.StartOnOrBefore.IsEmpty() && e.StartDate.After(f.StartOnOrBefore.Time) {
			continue
		}
		if !f.OverlapStart.IsEmpty() && !f.OverlapEnd.IsEmpty() {
			if e.StartDate.After(f.OverlapEnd.Time) {
				continue
			}
			if !e.EndDate.IsEmpty() && e.EndDate.Before(f.OverlapStart.Time) {
				continue
			}
		}
		e.CategoryName = m.categoryName(e.CategoryID)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.Before(out[j].StartDate.Time)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *MemoryStore) ListCompletions(_ context.Context, userID string, parentIDs []uuid.UUID, period core.Date) ([]core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}

	var out []core.Entry
	for _, e := range m.entries {
		if e.Deleted || e.UserID != userID || e.Role != core.RoleCompletion {
			continue
		}
		if !wanted[e.ParentID] || !e.Date.Equal(period.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID.String() < out[j].ParentID.String()
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetTemplate(_ context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok || e.Deleted || e.UserID != userID || e.Schedule != core.Recurring || e.Role != core.RoleStandard {
		return core.Entry{}, core.ErrNotFound
	}
	e.CategoryName = m.categoryName(e.CategoryID)
	return e, nil
}

func (m *MemoryStore) GetEntry(_ context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok || e.Deleted || e.UserID != userID {
		return core.Entry{}, core.ErrNotFound
	}
	e.CategoryName = m.categoryName(e.CategoryID)
	return e, nil
}

func (m *MemoryStore) InsertEntry(_ context.Context, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *MemoryStore) UpdateEntry(_ context.Context, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.entries[e.ID]
	if !ok || current.Deleted {
		return core.ErrNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *MemoryStore) ForkTemplate(_ context.Context, closed, successor core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.entries[closed.ID]
	if !ok || current.Deleted {
		return core.ErrNotFound
	}
	m.entries[closed.ID] = closed
	m.entries[successor.ID] = successor
	return nil
}

func (m *MemoryStore) SoftDeleteEntry(_ context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.Deleted || e.UserID != userID {
		return core.ErrNotFound
	}
	e.Deleted = true
	m.entries[id] = e

	// A deleted template takes its completion records with it.
	for cid, c := range m.entries {
		if c.ParentID == id && c.Role == core.RoleCompletion {
			c.Deleted = true
			m.entries[cid] = c
		}
	}
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, userID string, id uuid.UUID) (core.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok || a.Deleted || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.Account
	for _, a := range m.accounts {
		if a.Deleted || a.UserID != userID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) InsertAccount(_ context.Context, a core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *MemoryStore) UpdateAccount(_ context.Context, a core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.accounts[a.ID]
	if !ok || current.Deleted {
		return core.ErrNotFound
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *MemoryStore) SoftDeleteAccount(_ context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok || a.Deleted || a.UserID != userID {
		return core.ErrNotFound
	}
	a.Deleted = true
	m.accounts[id] = a
	return nil
}

func (m *MemoryStore) ListCategories(_ context.Context) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *MemoryStore) UpsertCompletion(_ context.Context, tpl core.Entry, period core.Date, amount decimal.Decimal, completedAt time.Time) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.Deleted || e.Role != core.RoleCompletion || e.ParentID != tpl.ID || !e.Date.Equal(period.Time) {
			continue
		}
		e.Amount = amount
		e.CompletedAt = completedAt
		e.UpdatedAt = completedAt
		m.entries[id] = e
		return e, nil
	}

	record := services.NewCompletionRecord(tpl, period, amount, completedAt)
	record.CreatedAt = completedAt
	record.UpdatedAt = completedAt
	m.entries[record.ID] = record
	return record, nil
}

func (m *MemoryStore) InsertCompletions(_ context.Context, completions []core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range completions {
		m.entries[c.ID] = c
	}
	return nil
}

func (m *MemoryStore) SoftDeleteCompletion(_ context.Context, userID string, parentID uuid.UUID, period core.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.Deleted || e.UserID != userID || e.Role != core.RoleCompletion {
			continue
		}
		if e.ParentID != parentID || !e.Date.Equal(period.Time) {
			continue
		}
		e.Deleted = true
		m.entries[id] = e
	}
	return nil
}
