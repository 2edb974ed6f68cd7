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

// EntryService orchestrates entry writes across storage and the event stream.
// Storage is authoritative; events are best-effort notifications for the
// report sync worker.
type EntryService struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

func NewEntryService(store Store, events EventPublisher) *EntryService {
	return &EntryService{store: store, events: events, now: time.Now}
}

// Create validates and persists a new entry. Recurring entries become the
// first member of a fresh recurrence group.
func (s *EntryService) Create(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	now := s.now().UTC()
	e.ID = uuid.New()
	e.Role = core.RoleStandard
	e.Deleted = false
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Schedule == core.Recurring {
		e.Active = true
		e.RecurrenceGroupID = uuid.New()
		e.Date = core.Date{}
	} else {
		e.StartDate = core.Date{}
		e.EndDate = core.Date{}
		e.Cadence = ""
	}

	if err := s.store.InsertEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	year, month := eventPeriodOf(e)
	s.publish(ctx, e.UserID, "entry_created", e.ID, year, month)
	return e, nil
}

// Update replaces the editable fields of an existing entry. It applies to the
// whole history of a recurring template; use UpdateFuture to change behavior
// from a given month onward.
func (s *EntryService) Update(ctx context.Context, e core.Entry) (core.Entry, error) {
	current, err := s.store.GetEntry(ctx, e.UserID, e.ID)
	if err != nil {
		return core.Entry{}, err
	}

	current.Title = e.Title
	current.Amount = e.Amount
	current.Kind = e.Kind
	current.CategoryID = e.CategoryID
	current.PaidFromAccountID = e.PaidFromAccountID
	current.ReceivedToAccountID = e.ReceivedToAccountID
	if current.Schedule == core.Recurring {
		current.StartDate = e.StartDate
		current.EndDate = e.EndDate
		current.Cadence = e.Cadence
		current.Active = e.Active
	} else {
		current.Date = e.Date
	}
	if err := current.Validate(); err != nil {
		return core.Entry{}, err
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEntry(ctx, current); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	year, month := eventPeriodOf(current)
	s.publish(ctx, current.UserID, "entry_updated", current.ID, year, month)
	return current, nil
}

// UpdateAmount changes only the amount, for quick inline edits.
func (s *EntryService) UpdateAmount(ctx context.Context, userID string, id uuid.UUID, amount decimal.Decimal) (core.Entry, error) {
	current, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	current.Amount = amount
	if err := current.Validate(); err != nil {
		return core.Entry{}, err
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEntry(ctx, current); err != nil {
		return core.Entry{}, fmt.Errorf("update entry amount: %w", err)
	}

	year, month := eventPeriodOf(current)
	s.publish(ctx, userID, "entry_updated", id, year, month)
	return current, nil
}

// UpdateDates changes the schedule window of a recurring template, or the
// movement date of a one-time entry.
func (s *EntryService) UpdateDates(ctx context.Context, userID string, id uuid.UUID, date, start, end core.Date) (core.Entry, error) {
	current, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	if current.Schedule == core.Recurring {
		current.StartDate = start
		current.EndDate = end
	} else {
		current.Date = date
	}
	if err := current.Validate(); err != nil {
		return core.Entry{}, err
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEntry(ctx, current); err != nil {
		return core.Entry{}, fmt.Errorf("update entry dates: %w", err)
	}

	year, month := eventPeriodOf(current)
	s.publish(ctx, userID, "entry_updated", id, year, month)
	return current, nil
}

// UpdateFuture forks a recurring template: the current row is closed the day
// before effectiveFrom and a successor row carries the changes from
// effectiveFrom onward. Both rows share the recurrence group, so installment
// counts span the whole series. Past months keep the old terms.
func (s *EntryService) UpdateFuture(ctx context.Context, userID string, id uuid.UUID, changes core.Entry, effectiveFrom core.Date) (core.Entry, error) {
	current, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	if effectiveFrom.IsEmpty() {
		return core.Entry{}, core.ErrMissingStart
	}
	if !current.StartDate.IsEmpty() && !effectiveFrom.After(current.StartDate.Time) {
		// Nothing to preserve; edit the template in place instead.
		changes.ID = current.ID
		changes.UserID = userID
		changes.Schedule = core.Recurring
		return s.Update(ctx, changes)
	}

	now := s.now().UTC()

	closed := current
	closed.EndDate = core.DateOf(effectiveFrom.AddDate(0, 0, -1))
	closed.UpdatedAt = now

	successor := current
	successor.ID = uuid.New()
	successor.Title = changes.Title
	successor.Amount = changes.Amount
	successor.Cadence = changes.Cadence
	successor.CategoryID = changes.CategoryID
	successor.PaidFromAccountID = changes.PaidFromAccountID
	successor.ReceivedToAccountID = changes.ReceivedToAccountID
	successor.StartDate = effectiveFrom
	successor.EndDate = current.EndDate
	successor.RecurrenceGroupID = current.RecurrenceGroupID
	successor.CreatedAt = now
	successor.UpdatedAt = now
	if err := successor.Validate(); err != nil {
		return core.Entry{}, err
	}

	if err := s.store.ForkTemplate(ctx, closed, successor); err != nil {
		return core.Entry{}, fmt.Errorf("fork template: %w", err)
	}

	s.publish(ctx, userID, "entry_updated", successor.ID, effectiveFrom.Year(), int(effectiveFrom.Month()))
	return successor, nil
}

// Delete soft-deletes an entry. Deleting a recurring template also removes
// its completion records; the store handles both in one transaction.
func (s *EntryService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	current, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.SoftDeleteEntry(ctx, userID, id); err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}

	year, month := eventPeriodOf(current)
	s.publish(ctx, userID, "entry_deleted", id, year, month)
	return nil
}

// Get returns a single owned entry.
func (s *EntryService) Get(ctx context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	return s.store.GetEntry(ctx, userID, id)
}

// eventPeriodOf picks the month a change affects first: the movement month
// for one-time entries, the schedule start for recurring templates, today
// when neither date is set.
func eventPeriodOf(e core.Entry) (year, month int) {
	at := e.Date
	if e.Schedule == core.Recurring {
		at = e.StartDate
	}
	if at.IsEmpty() {
		now := time.Now().UTC()
		return now.Year(), int(now.Month())
	}
	return at.Year(), int(at.Month())
}

func (s *EntryService) publish(ctx context.Context, userID, action string, entryID uuid.UUID, year, month int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEntryEvent(ctx, userID, action, entryID, year, month); err != nil {
		slog.WarnContext(ctx, "Failed to publish entry event",
			"action", action, "entry_id", entryID, "error", err)
	}
}
