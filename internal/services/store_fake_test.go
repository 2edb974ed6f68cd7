package services

import (
	"context"
	"sort"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store for service tests. It mirrors the SQLite
// repository's filter semantics: soft-deleted rows are invisible, every query
// is scoped by user, dates compare at day granularity.
type fakeStore struct {
	entries    map[uuid.UUID]core.Entry
	accounts   map[uuid.UUID]core.Account
	categories []core.Category
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[uuid.UUID]core.Entry),
		accounts: make(map[uuid.UUID]core.Account),
	}
}

func (f *fakeStore) addEntry(e core.Entry) core.Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.entries[e.ID] = e
	return e
}

func (f *fakeStore) addAccount(a core.Account) core.Account {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.accounts[a.ID] = a
	return a
}

func (f *fakeStore) ListOneTimeEntries(_ context.Context, userID string, filter OneTimeFilter) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range f.entries {
		if e.Deleted || e.UserID != userID || e.Schedule != core.OneTime || e.Role != core.RoleStandard {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.PaidFrom != uuid.Nil && e.PaidFromAccountID != filter.PaidFrom {
			continue
		}
		if filter.ReceivedTo != uuid.Nil && e.ReceivedToAccountID != filter.ReceivedTo {
			continue
		}
		if !filter.From.IsEmpty() && e.Date.Before(filter.From.Time) {
			continue
		}
		if !filter.To.IsEmpty() && e.Date.After(filter.To.Time) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (f *fakeStore) ListRecurringTemplates(_ context.Context, userID string, filter TemplateFilter) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range f.entries {
		if e.Deleted || e.UserID != userID || e.Schedule != core.Recurring || e.Role != core.RoleStandard {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.PaidFrom != uuid.Nil && e.PaidFromAccountID != filter.PaidFrom {
			continue
		}
		if filter.ReceivedTo != uuid.Nil && e.ReceivedToAccountID != filter.ReceivedTo {
			continue
		}
		if filter.ActiveOnly && !e.Active {
			continue
		}
		if !filter.StartOnOrBefore.IsEmpty() && e.StartDate.After(filter.StartOnOrBefore.Time) {
			continue
		}
		if !filter.OverlapStart.IsEmpty() && !filter.OverlapEnd.IsEmpty() {
			if e.StartDate.After(filter.OverlapEnd.Time) {
				continue
			}
			if !e.EndDate.IsEmpty() && e.EndDate.Before(filter.OverlapStart.Time) {
				continue
			}
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (f *fakeStore) ListCompletions(_ context.Context, userID string, parentIDs []uuid.UUID, period core.Date) ([]core.Entry, error) {
	wanted := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	var out []core.Entry
	for _, e := range f.entries {
		if e.Deleted || e.UserID != userID || e.Role != core.RoleCompletion {
			continue
		}
		if !wanted[e.ParentID] || !e.Date.Equal(period.Time) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	e, ok := f.entries[id]
	if !ok || e.Deleted || e.UserID != userID || e.Schedule != core.Recurring || e.Role != core.RoleStandard {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) GetEntry(_ context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	e, ok := f.entries[id]
	if !ok || e.Deleted || e.UserID != userID {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) InsertEntry(_ context.Context, e core.Entry) error {
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) UpdateEntry(_ context.Context, e core.Entry) error {
	if _, ok := f.entries[e.ID]; !ok {
		return core.ErrNotFound
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) ForkTemplate(_ context.Context, closed, successor core.Entry) error {
	if _, ok := f.entries[closed.ID]; !ok {
		return core.ErrNotFound
	}
	f.entries[closed.ID] = closed
	f.entries[successor.ID] = successor
	return nil
}

func (f *fakeStore) SoftDeleteEntry(_ context.Context, userID string, id uuid.UUID) error {
	e, ok := f.entries[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	e.Deleted = true
	f.entries[id] = e
	for cid, c := range f.entries {
		if c.ParentID == id {
			c.Deleted = true
			f.entries[cid] = c
		}
	}
	return nil
}

func (f *fakeStore) GetAccount(_ context.Context, userID string, id uuid.UUID) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok || a.Deleted || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.Deleted || a.UserID != userID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) InsertAccount(_ context.Context, a core.Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a core.Account) error {
	if _, ok := f.accounts[a.ID]; !ok {
		return core.ErrNotFound
	}
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeStore) SoftDeleteAccount(_ context.Context, userID string, id uuid.UUID) error {
	a, ok := f.accounts[id]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	a.Deleted = true
	f.accounts[id] = a
	return nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) UpsertCompletion(_ context.Context, tpl core.Entry, period core.Date, amount decimal.Decimal, completedAt time.Time) (core.Entry, error) {
	for id, e := range f.entries {
		if e.Deleted || e.Role != core.RoleCompletion || e.ParentID != tpl.ID || !e.Date.Equal(period.Time) {
			continue
		}
		e.Amount = amount
		e.CompletedAt = completedAt
		e.UpdatedAt = completedAt
		f.entries[id] = e
		return e, nil
	}
	rec := NewCompletionRecord(tpl, period, amount, completedAt)
	f.entries[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) InsertCompletions(_ context.Context, completions []core.Entry) error {
	for _, c := range completions {
		f.entries[c.ID] = c
	}
	return nil
}

func (f *fakeStore) SoftDeleteCompletion(_ context.Context, userID string, parentID uuid.UUID, period core.Date) error {
	for id, e := range f.entries {
		if e.Deleted || e.UserID != userID || e.Role != core.RoleCompletion {
			continue
		}
		if e.ParentID != parentID || !e.Date.Equal(period.Time) {
			continue
		}
		e.Deleted = true
		f.entries[id] = e
	}
	return nil
}

func sortEntries(entries []core.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Title < entries[j].Title })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

// fakePublisher records published events for assertions.
type fakePublisher struct {
	actions []string
}

func (p *fakePublisher) PublishEntryEvent(_ context.Context, _ string, action string, _ uuid.UUID, _, _ int) error {
	p.actions = append(p.actions, action)
	return nil
}
