package services

import (
	"context"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ports for the storage collaborator. The engine is a pure computation layer;
// all persisted state flows through these interfaces. Implementations must
// exclude soft-deleted rows and scope every query to the given user.
type (
	// OneTimeFilter narrows ListOneTimeEntries. Zero values mean "any".
	OneTimeFilter struct {
		Kind       core.Kind
		PaidFrom   uuid.UUID
		ReceivedTo uuid.UUID
		From       core.Date
		To         core.Date
	}

	// TemplateFilter narrows ListRecurringTemplates. Zero values mean "any".
	// When OverlapStart/OverlapEnd are both set, only templates whose
	// [StartDate, EndDate] range intersects the window are returned.
	TemplateFilter struct {
		Kind            core.Kind
		PaidFrom        uuid.UUID
		ReceivedTo      uuid.UUID
		ActiveOnly      bool
		StartOnOrBefore core.Date
		OverlapStart    core.Date
		OverlapEnd      core.Date
	}

	EntryReader interface {
		// ListOneTimeEntries returns standard one-time movements.
		ListOneTimeEntries(ctx context.Context, userID string, f OneTimeFilter) ([]core.Entry, error)

		// ListRecurringTemplates returns standard recurring templates.
		ListRecurringTemplates(ctx context.Context, userID string, f TemplateFilter) ([]core.Entry, error)

		// ListCompletions returns non-deleted completion records whose parent
		// is one of parentIDs and whose period date equals period.
		ListCompletions(ctx context.Context, userID string, parentIDs []uuid.UUID, period core.Date) ([]core.Entry, error)

		// GetTemplate returns a recurring template owned by the user, or
		// core.ErrNotFound.
		GetTemplate(ctx context.Context, userID string, id uuid.UUID) (core.Entry, error)

		// GetEntry returns any non-deleted entry owned by the user, or
		// core.ErrNotFound.
		GetEntry(ctx context.Context, userID string, id uuid.UUID) (core.Entry, error)
	}

	EntryWriter interface {
		InsertEntry(ctx context.Context, e core.Entry) error

		UpdateEntry(ctx context.Context, e core.Entry) error

		// ForkTemplate closes the current template at closeEnd and inserts
		// the successor in one transaction.
		ForkTemplate(ctx context.Context, closed, successor core.Entry) error

		// SoftDeleteEntry marks the entry deleted. Deleting a recurring
		// template also deletes its completion records.
		SoftDeleteEntry(ctx context.Context, userID string, id uuid.UUID) error
	}

	AccountReader interface {
		// GetAccount returns the account, or core.ErrNotFound when it does
		// not exist or is not owned by the user.
		GetAccount(ctx context.Context, userID string, id uuid.UUID) (core.Account, error)

		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	}

	AccountWriter interface {
		InsertAccount(ctx context.Context, a core.Account) error

		UpdateAccount(ctx context.Context, a core.Account) error

		// SoftDeleteAccount marks the account deleted. Entries referencing it
		// keep their reference; balances simply stop listing the account.
		SoftDeleteAccount(ctx context.Context, userID string, id uuid.UUID) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// CompletionWriter is the engine's only write surface. Each call is a
	// single atomic unit; no partial record may survive a failure.
	CompletionWriter interface {
		// UpsertCompletion updates the amount and completion timestamp of the
		// existing non-deleted completion for (parent, period), or inserts a
		// fresh record modeled on the template.
		UpsertCompletion(ctx context.Context, tpl core.Entry, period core.Date, amount decimal.Decimal, completedAt time.Time) (core.Entry, error)

		// InsertCompletions inserts a batch of completion records in one
		// transaction. Used by mark-all; entries are fully formed.
		InsertCompletions(ctx context.Context, completions []core.Entry) error

		// SoftDeleteCompletion marks the completion for (parent, period)
		// deleted. A missing completion is a no-op.
		SoftDeleteCompletion(ctx context.Context, userID string, parentID uuid.UUID, period core.Date) error
	}

	// Store is the full contract the engine consumes.
	Store interface {
		EntryReader
		EntryWriter
		AccountReader
		AccountWriter
		CategoryReader
		CompletionWriter
	}
)

// EventPublisher notifies interested consumers after a successful write.
// Publishing failures are logged by callers, never surfaced to the user.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, userID, action string, entryID uuid.UUID, year, month int) error
}
