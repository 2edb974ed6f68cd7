package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hisab/internal/core"
	"hisab/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListOneTimeEntries(ctx context.Context, userID string, f services.OneTimeFilter) ([]core.Entry, error) {
	rows, err := r.queries.ListOneTimeEntries(ctx, ListOneTimeEntriesParams{
		UserID:     userID,
		Kind:       string(f.Kind),
		PaidFrom:   uuidColumn(f.PaidFrom),
		ReceivedTo: uuidColumn(f.ReceivedTo),
		FromDate:   dateColumn(f.From),
		ToDate:     dateColumn(f.To),
	})
	if err != nil {
		return nil, fmt.Errorf("list one-time entries: %w", err)
	}
	return r.toEntries(ctx, rows)
}

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context, userID string, f services.TemplateFilter) ([]core.Entry, error) {
	rows, err := r.queries.ListRecurringTemplates(ctx, ListRecurringTemplatesParams{
		UserID:          userID,
		Kind:            string(f.Kind),
		PaidFrom:        uuidColumn(f.PaidFrom),
		ReceivedTo:      uuidColumn(f.ReceivedTo),
		ActiveOnly:      f.ActiveOnly,
		StartOnOrBefore: dateColumn(f.StartOnOrBefore),
		OverlapStart:    dateColumn(f.OverlapStart),
		OverlapEnd:      dateColumn(f.OverlapEnd),
	})
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return r.toEntries(ctx, rows)
}

func (r *SQLiteRepository) ListCompletions(ctx context.Context, userID string, parentIDs []uuid.UUID, period core.Date) ([]core.Entry, error) {
	rows, err := r.queries.ListCompletionsForPeriod(ctx, ListCompletionsForPeriodParams{
		UserID: userID,
		Date:   dateColumn(period),
	})
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	wanted := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id.String()] = true
	}
	var matched []Entry
	for _, row := range rows {
		if wanted[row.ParentID] {
			matched = append(matched, row)
		}
	}
	return r.toEntries(ctx, matched)
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	row, err := r.queries.GetTemplate(ctx, GetTemplateParams{ID: id.String(), UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get template: %w", err)
	}
	return toCoreEntry(row, nil)
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, userID string, id uuid.UUID) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, GetEntryParams{ID: id.String(), UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return toCoreEntry(row, nil)
}

func (r *SQLiteRepository) InsertEntry(ctx context.Context, e core.Entry) error {
	if err := r.queries.CreateEntry(ctx, toCreateEntryParams(e)); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry saved",
		"id", e.ID,
		"title", e.Title,
		"schedule", e.Schedule,
		"kind", e.Kind)
	return nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) error {
	if err := r.queries.UpdateEntry(ctx, toUpdateEntryParams(e)); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ForkTemplate(ctx context.Context, closed, successor core.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fork transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpdateEntry(ctx, toUpdateEntryParams(closed)); err != nil {
		return fmt.Errorf("close template: %w", err)
	}
	if err := q.CreateEntry(ctx, toCreateEntryParams(successor)); err != nil {
		return fmt.Errorf("create successor template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fork: %w", err)
	}

	slog.InfoContext(ctx, "Recurring template forked",
		"closed_id", closed.ID,
		"successor_id", successor.ID,
		"effective_from", dateColumn(successor.StartDate))
	return nil
}

func (r *SQLiteRepository) SoftDeleteEntry(ctx context.Context, userID string, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	q := r.queries.WithTx(tx)
	affected, err := q.SoftDeleteEntry(ctx, SoftDeleteEntryParams{ID: id.String(), UserID: userID, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	if err := q.SoftDeleteEntryChildren(ctx, SoftDeleteEntryChildrenParams{
		UserID:    userID,
		ParentID:  id.String(),
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("soft delete completions: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID string, id uuid.UUID) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, GetAccountParams{ID: id.String(), UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toCoreAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		account, err := toCoreAccount(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) error {
	err := r.queries.CreateAccount(ctx, CreateAccountParams{
		ID:                a.ID.String(),
		UserID:            a.UserID,
		Name:              a.Name,
		Type:              string(a.Type),
		InitialBalance:    a.InitialBalance.String(),
		UseManualOverride: a.UseManualOverride,
		ManualOverride:    nullDecimalColumn(a.ManualOverride),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	err := r.queries.UpdateAccount(ctx, UpdateAccountParams{
		Name:              a.Name,
		Type:              string(a.Type),
		InitialBalance:    a.InitialBalance.String(),
		UseManualOverride: a.UseManualOverride,
		ManualOverride:    nullDecimalColumn(a.ManualOverride),
		UpdatedAt:         a.UpdatedAt,
		ID:                a.ID.String(),
		UserID:            a.UserID,
	})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDeleteAccount(ctx context.Context, userID string, id uuid.UUID) error {
	affected, err := r.queries.SoftDeleteAccount(ctx, SoftDeleteAccountParams{
		ID:        id.String(),
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parse category id %q: %w", row.ID, err)
		}
		categories = append(categories, core.Category{
			ID:     id,
			Name:   row.Name,
			Type:   core.Kind(row.Type),
			System: row.System,
		})
	}
	return categories, nil
}

// UpsertCompletion updates the existing completion for (parent, period) in
// place, or inserts a fresh record shaped from the template. The read and
// the write share one transaction so racing submissions cannot both insert.
func (r *SQLiteRepository) UpsertCompletion(ctx context.Context, tpl core.Entry, period core.Date, amount decimal.Decimal, completedAt time.Time) (core.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	existing, err := q.GetCompletionForPeriod(ctx, GetCompletionForPeriodParams{
		UserID:   tpl.UserID,
		ParentID: tpl.ID.String(),
		Date:     dateColumn(period),
	})
	switch {
	case err == nil:
		if err := q.UpdateCompletionAmount(ctx, UpdateCompletionAmountParams{
			Amount:      amount.String(),
			CompletedAt: sql.NullTime{Time: completedAt, Valid: true},
			UpdatedAt:   completedAt,
			ID:          existing.ID,
		}); err != nil {
			return core.Entry{}, fmt.Errorf("update completion: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return core.Entry{}, fmt.Errorf("commit upsert: %w", err)
		}
		existing.Amount = amount.String()
		existing.CompletedAt = sql.NullTime{Time: completedAt, Valid: true}
		existing.UpdatedAt = completedAt
		return toCoreEntry(existing, nil)

	case errors.Is(err, sql.ErrNoRows):
		record := services.NewCompletionRecord(tpl, period, amount, completedAt)
		record.CreatedAt = completedAt
		record.UpdatedAt = completedAt
		if err := q.CreateEntry(ctx, toCreateEntryParams(record)); err != nil {
			return core.Entry{}, fmt.Errorf("create completion: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return core.Entry{}, fmt.Errorf("commit upsert: %w", err)
		}
		return record, nil

	default:
		return core.Entry{}, fmt.Errorf("get completion: %w", err)
	}
}

func (r *SQLiteRepository) InsertCompletions(ctx context.Context, completions []core.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, c := range completions {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = c.CompletedAt
			c.UpdatedAt = c.CompletedAt
		}
		if err := q.CreateEntry(ctx, toCreateEntryParams(c)); err != nil {
			return fmt.Errorf("create completion %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) SoftDeleteCompletion(ctx context.Context, userID string, parentID uuid.UUID, period core.Date) error {
	err := r.queries.SoftDeleteCompletions(ctx, SoftDeleteCompletionsParams{
		UserID:    userID,
		ParentID:  parentID.String(),
		Date:      dateColumn(period),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("soft delete completions: %w", err)
	}
	return nil
}

// toEntries maps rows to core entries with category names joined in.
func (r *SQLiteRepository) toEntries(ctx context.Context, rows []Entry) ([]core.Entry, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	names := make(map[string]string)
	categories, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := toCoreEntry(row, names)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toCoreEntry(row Entry, categoryNames map[string]string) (core.Entry, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse entry id %q: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse entry amount %q: %w", row.Amount, err)
	}

	e := core.Entry{
		ID:                  id,
		UserID:              row.UserID,
		Title:               row.Title,
		Amount:              amount,
		Kind:                core.Kind(row.Kind),
		Schedule:            core.ScheduleType(row.Schedule),
		Cadence:             core.Cadence(row.Cadence),
		Active:              row.Active,
		CategoryID:          parseOptionalUUID(row.CategoryID),
		PaidFromAccountID:   parseOptionalUUID(row.PaidFromAccountID),
		ReceivedToAccountID: parseOptionalUUID(row.ReceivedToAccountID),
		ParentID:            parseOptionalUUID(row.ParentID),
		RecurrenceGroupID:   parseOptionalUUID(row.RecurrenceGroupID),
		Role:                core.EntryRole(row.Role),
		Completed:           row.Completed,
		Deleted:             row.Deleted,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if e.Date, err = parseDateColumn(row.Date); err != nil {
		return core.Entry{}, err
	}
	if e.StartDate, err = parseDateColumn(row.StartDate); err != nil {
		return core.Entry{}, err
	}
	if e.EndDate, err = parseDateColumn(row.EndDate); err != nil {
		return core.Entry{}, err
	}
	if row.CompletedAt.Valid {
		e.CompletedAt = row.CompletedAt.Time
	}
	if categoryNames != nil {
		e.CategoryName = categoryNames[row.CategoryID]
	}
	return e, nil
}

func toCoreAccount(row Account) (core.Account, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account id %q: %w", row.ID, err)
	}
	initial, err := decimal.NewFromString(row.InitialBalance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse initial balance %q: %w", row.InitialBalance, err)
	}

	account := core.Account{
		ID:                id,
		UserID:            row.UserID,
		Name:              row.Name,
		Type:              core.AccountType(row.Type),
		InitialBalance:    initial,
		UseManualOverride: row.UseManualOverride,
		Deleted:           row.Deleted,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.ManualOverride.Valid {
		override, err := decimal.NewFromString(row.ManualOverride.String)
		if err != nil {
			return core.Account{}, fmt.Errorf("parse manual override %q: %w", row.ManualOverride.String, err)
		}
		account.ManualOverride = decimal.NewNullDecimal(override)
	}
	return account, nil
}

func toCreateEntryParams(e core.Entry) CreateEntryParams {
	return CreateEntryParams{
		ID:                  e.ID.String(),
		UserID:              e.UserID,
		Title:               e.Title,
		Amount:              e.Amount.String(),
		Kind:                string(e.Kind),
		Schedule:            string(e.Schedule),
		Cadence:             string(e.Cadence),
		Date:                dateColumn(e.Date),
		StartDate:           dateColumn(e.StartDate),
		EndDate:             dateColumn(e.EndDate),
		Active:              e.Active,
		CategoryID:          uuidColumn(e.CategoryID),
		PaidFromAccountID:   uuidColumn(e.PaidFromAccountID),
		ReceivedToAccountID: uuidColumn(e.ReceivedToAccountID),
		ParentID:            uuidColumn(e.ParentID),
		RecurrenceGroupID:   uuidColumn(e.RecurrenceGroupID),
		Role:                string(e.Role),
		Completed:           e.Completed,
		CompletedAt:         nullTimeColumn(e.CompletedAt),
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func toUpdateEntryParams(e core.Entry) UpdateEntryParams {
	return UpdateEntryParams{
		Title:               e.Title,
		Amount:              e.Amount.String(),
		Kind:                string(e.Kind),
		Cadence:             string(e.Cadence),
		Date:                dateColumn(e.Date),
		StartDate:           dateColumn(e.StartDate),
		EndDate:             dateColumn(e.EndDate),
		Active:              e.Active,
		CategoryID:          uuidColumn(e.CategoryID),
		PaidFromAccountID:   uuidColumn(e.PaidFromAccountID),
		ReceivedToAccountID: uuidColumn(e.ReceivedToAccountID),
		Completed:           e.Completed,
		CompletedAt:         nullTimeColumn(e.CompletedAt),
		UpdatedAt:           e.UpdatedAt,
		ID:                  e.ID.String(),
		UserID:              e.UserID,
	}
}

// uuidColumn renders uuid.Nil as the empty string, the "absent" value in
// the schema.
func uuidColumn(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseOptionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func dateColumn(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(dateLayout)
}

func parseDateColumn(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

func nullTimeColumn(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullDecimalColumn(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
