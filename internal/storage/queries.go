package storage

import (
	"context"
	"database/sql"
	"time"
)

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (
    id, user_id, name, type, initial_balance, use_manual_override, manual_override, deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
`

type CreateAccountParams struct {
	ID                string
	UserID            string
	Name              string
	Type              string
	InitialBalance    string
	UseManualOverride bool
	ManualOverride    sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Type,
		arg.InitialBalance,
		arg.UseManualOverride,
		arg.ManualOverride,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const createEntry = `-- name: CreateEntry :exec
INSERT INTO entries (
    id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
    active, category_id, paid_from_account_id, received_to_account_id, parent_id,
    recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
`

type CreateEntryParams struct {
	ID                  string
	UserID              string
	Title               string
	Amount              string
	Kind                string
	Schedule            string
	Cadence             string
	Date                string
	StartDate           string
	EndDate             string
	Active              bool
	CategoryID          string
	PaidFromAccountID   string
	ReceivedToAccountID string
	ParentID            string
	RecurrenceGroupID   string
	Role                string
	Completed           bool
	CompletedAt         sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) error {
	_, err := q.db.ExecContext(ctx, createEntry,
		arg.ID,
		arg.UserID,
		arg.Title,
		arg.Amount,
		arg.Kind,
		arg.Schedule,
		arg.Cadence,
		arg.Date,
		arg.StartDate,
		arg.EndDate,
		arg.Active,
		arg.CategoryID,
		arg.PaidFromAccountID,
		arg.ReceivedToAccountID,
		arg.ParentID,
		arg.RecurrenceGroupID,
		arg.Role,
		arg.Completed,
		arg.CompletedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getAccount = `-- name: GetAccount :one
SELECT id, user_id, name, type, initial_balance, use_manual_override, manual_override, deleted, created_at, updated_at
FROM accounts
WHERE id = ?1 AND user_id = ?2 AND deleted = 0
`

type GetAccountParams struct {
	ID     string
	UserID string
}

func (q *Queries) GetAccount(ctx context.Context, arg GetAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, arg.ID, arg.UserID)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Type,
		&i.InitialBalance,
		&i.UseManualOverride,
		&i.ManualOverride,
		&i.Deleted,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCompletionForPeriod = `-- name: GetCompletionForPeriod :one
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE user_id = ?1 AND parent_id = ?2 AND date = ?3
  AND role = 'recurring_completion' AND deleted = 0
ORDER BY completed_at DESC
LIMIT 1
`

type GetCompletionForPeriodParams struct {
	UserID   string
	ParentID string
	Date     string
}

func (q *Queries) GetCompletionForPeriod(ctx context.Context, arg GetCompletionForPeriodParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, getCompletionForPeriod, arg.UserID, arg.ParentID, arg.Date)
	var i Entry
	err := scanEntryRow(row, &i)
	return i, err
}

const getEntry = `-- name: GetEntry :one
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE id = ?1 AND user_id = ?2 AND deleted = 0
`

type GetEntryParams struct {
	ID     string
	UserID string
}

func (q *Queries) GetEntry(ctx context.Context, arg GetEntryParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, getEntry, arg.ID, arg.UserID)
	var i Entry
	err := scanEntryRow(row, &i)
	return i, err
}

const getTemplate = `-- name: GetTemplate :one
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE id = ?1 AND user_id = ?2 AND schedule = 'recurring' AND role = 'standard' AND deleted = 0
`

type GetTemplateParams struct {
	ID     string
	UserID string
}

func (q *Queries) GetTemplate(ctx context.Context, arg GetTemplateParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, getTemplate, arg.ID, arg.UserID)
	var i Entry
	err := scanEntryRow(row, &i)
	return i, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, user_id, name, type, initial_balance, use_manual_override, manual_override, deleted, created_at, updated_at
FROM accounts
WHERE user_id = ? AND deleted = 0
ORDER BY name
`

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Type,
			&i.InitialBalance,
			&i.UseManualOverride,
			&i.ManualOverride,
			&i.Deleted,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, type, system
FROM categories
ORDER BY type, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.System); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCompletionsForPeriod = `-- name: ListCompletionsForPeriod :many
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE user_id = ?1 AND date = ?2 AND role = 'recurring_completion' AND deleted = 0
ORDER BY parent_id, completed_at
`

type ListCompletionsForPeriodParams struct {
	UserID string
	Date   string
}

func (q *Queries) ListCompletionsForPeriod(ctx context.Context, arg ListCompletionsForPeriodParams) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listCompletionsForPeriod, arg.UserID, arg.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntryRows(rows)
}

const listOneTimeEntries = `-- name: ListOneTimeEntries :many
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE user_id = ?1 AND schedule = 'one_time' AND role = 'standard' AND deleted = 0
  AND (?2 = '' OR kind = ?2)
  AND (?3 = '' OR paid_from_account_id = ?3)
  AND (?4 = '' OR received_to_account_id = ?4)
  AND (?5 = '' OR date >= ?5)
  AND (?6 = '' OR date <= ?6)
ORDER BY date, title
`

type ListOneTimeEntriesParams struct {
	UserID     string
	Kind       string
	PaidFrom   string
	ReceivedTo string
	FromDate   string
	ToDate     string
}

func (q *Queries) ListOneTimeEntries(ctx context.Context, arg ListOneTimeEntriesParams) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listOneTimeEntries,
		arg.UserID,
		arg.Kind,
		arg.PaidFrom,
		arg.ReceivedTo,
		arg.FromDate,
		arg.ToDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntryRows(rows)
}

const listRecurringTemplates = `-- name: ListRecurringTemplates :many
SELECT id, user_id, title, amount, kind, schedule, cadence, date, start_date, end_date,
       active, category_id, paid_from_account_id, received_to_account_id, parent_id,
       recurrence_group_id, role, completed, completed_at, deleted, created_at, updated_at
FROM entries
WHERE user_id = ?1 AND schedule = 'recurring' AND role = 'standard' AND deleted = 0
  AND (?2 = '' OR kind = ?2)
  AND (?3 = '' OR paid_from_account_id = ?3)
  AND (?4 = '' OR received_to_account_id = ?4)
  AND (?5 = 0 OR active = 1)
  AND (?6 = '' OR start_date <= ?6)
  AND (?7 = '' OR start_date <= ?8)
  AND (?7 = '' OR end_date = '' OR end_date >= ?7)
ORDER BY start_date, title
`

type ListRecurringTemplatesParams struct {
	UserID          string
	Kind            string
	PaidFrom        string
	ReceivedTo      string
	ActiveOnly      bool
	StartOnOrBefore string
	OverlapStart    string
	OverlapEnd      string
}

func (q *Queries) ListRecurringTemplates(ctx context.Context, arg ListRecurringTemplatesParams) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringTemplates,
		arg.UserID,
		arg.Kind,
		arg.PaidFrom,
		arg.ReceivedTo,
		arg.ActiveOnly,
		arg.StartOnOrBefore,
		arg.OverlapStart,
		arg.OverlapEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntryRows(rows)
}

const softDeleteAccount = `-- name: SoftDeleteAccount :execrows
UPDATE accounts SET deleted = 1, updated_at = ?3
WHERE id = ?1 AND user_id = ?2 AND deleted = 0
`

type SoftDeleteAccountParams struct {
	ID        string
	UserID    string
	UpdatedAt time.Time
}

func (q *Queries) SoftDeleteAccount(ctx context.Context, arg SoftDeleteAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteAccount, arg.ID, arg.UserID, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const softDeleteCompletions = `-- name: SoftDeleteCompletions :exec
UPDATE entries SET deleted = 1, updated_at = ?4
WHERE user_id = ?1 AND parent_id = ?2 AND date = ?3
  AND role = 'recurring_completion' AND deleted = 0
`

type SoftDeleteCompletionsParams struct {
	UserID    string
	ParentID  string
	Date      string
	UpdatedAt time.Time
}

func (q *Queries) SoftDeleteCompletions(ctx context.Context, arg SoftDeleteCompletionsParams) error {
	_, err := q.db.ExecContext(ctx, softDeleteCompletions, arg.UserID, arg.ParentID, arg.Date, arg.UpdatedAt)
	return err
}

const softDeleteEntry = `-- name: SoftDeleteEntry :execrows
UPDATE entries SET deleted = 1, updated_at = ?3
WHERE id = ?1 AND user_id = ?2 AND deleted = 0
`

type SoftDeleteEntryParams struct {
	ID        string
	UserID    string
	UpdatedAt time.Time
}

func (q *Queries) SoftDeleteEntry(ctx context.Context, arg SoftDeleteEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteEntry, arg.ID, arg.UserID, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const softDeleteEntryChildren = `-- name: SoftDeleteEntryChildren :exec
UPDATE entries SET deleted = 1, updated_at = ?3
WHERE user_id = ?1 AND parent_id = ?2 AND deleted = 0
`

type SoftDeleteEntryChildrenParams struct {
	UserID    string
	ParentID  string
	UpdatedAt time.Time
}

func (q *Queries) SoftDeleteEntryChildren(ctx context.Context, arg SoftDeleteEntryChildrenParams) error {
	_, err := q.db.ExecContext(ctx, softDeleteEntryChildren, arg.UserID, arg.ParentID, arg.UpdatedAt)
	return err
}

const updateAccount = `-- name: UpdateAccount :exec
UPDATE accounts
SET name = ?, type = ?, initial_balance = ?, use_manual_override = ?, manual_override = ?, updated_at = ?
WHERE id = ? AND user_id = ? AND deleted = 0
`

type UpdateAccountParams struct {
	Name              string
	Type              string
	InitialBalance    string
	UseManualOverride bool
	ManualOverride    sql.NullString
	UpdatedAt         time.Time
	ID                string
	UserID            string
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) error {
	_, err := q.db.ExecContext(ctx, updateAccount,
		arg.Name,
		arg.Type,
		arg.InitialBalance,
		arg.UseManualOverride,
		arg.ManualOverride,
		arg.UpdatedAt,
		arg.ID,
		arg.UserID,
	)
	return err
}

const updateCompletionAmount = `-- name: UpdateCompletionAmount :exec
UPDATE entries SET amount = ?, completed_at = ?, updated_at = ?
WHERE id = ?
`

type UpdateCompletionAmountParams struct {
	Amount      string
	CompletedAt sql.NullTime
	UpdatedAt   time.Time
	ID          string
}

func (q *Queries) UpdateCompletionAmount(ctx context.Context, arg UpdateCompletionAmountParams) error {
	_, err := q.db.ExecContext(ctx, updateCompletionAmount, arg.Amount, arg.CompletedAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateEntry = `-- name: UpdateEntry :exec
UPDATE entries
SET title = ?, amount = ?, kind = ?, cadence = ?, date = ?, start_date = ?, end_date = ?,
    active = ?, category_id = ?, paid_from_account_id = ?, received_to_account_id = ?,
    completed = ?, completed_at = ?, updated_at = ?
WHERE id = ? AND user_id = ? AND deleted = 0
`

type UpdateEntryParams struct {
	Title               string
	Amount              string
	Kind                string
	Cadence             string
	Date                string
	StartDate           string
	EndDate             string
	Active              bool
	CategoryID          string
	PaidFromAccountID   string
	ReceivedToAccountID string
	Completed           bool
	CompletedAt         sql.NullTime
	UpdatedAt           time.Time
	ID                  string
	UserID              string
}

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) error {
	_, err := q.db.ExecContext(ctx, updateEntry,
		arg.Title,
		arg.Amount,
		arg.Kind,
		arg.Cadence,
		arg.Date,
		arg.StartDate,
		arg.EndDate,
		arg.Active,
		arg.CategoryID,
		arg.PaidFromAccountID,
		arg.ReceivedToAccountID,
		arg.Completed,
		arg.CompletedAt,
		arg.UpdatedAt,
		arg.ID,
		arg.UserID,
	)
	return err
}

func scanEntryRow(row *sql.Row, i *Entry) error {
	return row.Scan(
		&i.ID,
		&i.UserID,
		&i.Title,
		&i.Amount,
		&i.Kind,
		&i.Schedule,
		&i.Cadence,
		&i.Date,
		&i.StartDate,
		&i.EndDate,
		&i.Active,
		&i.CategoryID,
		&i.PaidFromAccountID,
		&i.ReceivedToAccountID,
		&i.ParentID,
		&i.RecurrenceGroupID,
		&i.Role,
		&i.Completed,
		&i.CompletedAt,
		&i.Deleted,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

func collectEntryRows(rows *sql.Rows) ([]Entry, error) {
	var items []Entry
	for rows.Next() {
		var i Entry
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Title,
			&i.Amount,
			&i.Kind,
			&i.Schedule,
			&i.Cadence,
			&i.Date,
			&i.StartDate,
			&i.EndDate,
			&i.Active,
			&i.CategoryID,
			&i.PaidFromAccountID,
			&i.ReceivedToAccountID,
			&i.ParentID,
			&i.RecurrenceGroupID,
			&i.Role,
			&i.Completed,
			&i.CompletedAt,
			&i.Deleted,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
