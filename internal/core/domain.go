package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	OneTime   ScheduleType = "one_time"
	Recurring ScheduleType = "recurring"
)

const (
	RoleStandard   EntryRole = "standard"
	RoleCompletion EntryRole = "recurring_completion"
)

const (
	Savings AccountType = "savings"
	Current AccountType = "current"
	Cash    AccountType = "cash"
	Wallet  AccountType = "wallet"
	Salary  AccountType = "salary"
)

type (
	Kind         string
	ScheduleType string
	EntryRole    string
	AccountType  string

	Date struct {
		time.Time
	}

	// Entry is the central movement record. One struct covers three shapes,
	// disambiguated by Schedule and Role:
	//   - a one-time movement (Schedule=OneTime, Role=RoleStandard)
	//   - a recurring template (Schedule=Recurring, Role=RoleStandard)
	//   - a completion record (Role=RoleCompletion, ParentID set, Date = period start)
	Entry struct {
		ID     uuid.UUID
		UserID string
		Title  string
		Amount decimal.Decimal
		Kind   Kind

		Schedule ScheduleType
		Cadence  Cadence // recurring templates only

		Date      Date // one-time movements and completion periods
		StartDate Date // recurring templates only
		EndDate   Date // optional; zero means open-ended
		Active    bool

		CategoryID   uuid.UUID
		CategoryName string // joined for display, not stored on the entry

		PaidFromAccountID   uuid.UUID // uuid.Nil when absent
		ReceivedToAccountID uuid.UUID

		// ParentID links a completion record to its template. A completion
		// never has children of its own; the write path enforces this.
		ParentID          uuid.UUID
		RecurrenceGroupID uuid.UUID
		Role              EntryRole

		Completed   bool
		CompletedAt time.Time

		Deleted   bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Account struct {
		ID             uuid.UUID
		UserID         string
		Name           string
		Type           AccountType
		InitialBalance decimal.Decimal

		// When UseManualOverride is on and ManualOverride is valid, the
		// override value is the balance; no reconstruction happens.
		UseManualOverride bool
		ManualOverride    decimal.NullDecimal

		Deleted   bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		ID     uuid.UUID
		Name   string
		Type   Kind
		System bool
	}
)

var (
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrEmptyTitle         = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title too long (max 200 characters)")
	ErrInvalidKind        = errors.New("invalid entry kind")
	ErrInvalidSchedule    = errors.New("invalid schedule type")
	ErrMissingDate        = errors.New("date is required for one-time entries")
	ErrMissingStart       = errors.New("start date is required for recurring entries")
	ErrMissingCadence     = errors.New("cadence is required for recurring entries")
	ErrEndBeforeStart     = errors.New("end date must be on or after start date")
	ErrMissingAccount     = errors.New("paid-from account is required for expenses")
	ErrEmptyAccountName   = errors.New("account name is required")
	ErrAccountNameTooLong = errors.New("account name too long (max 100 characters)")
	ErrNegativeBalance    = errors.New("initial balance must be zero or positive")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrNotDue             = errors.New("not due in the selected month")
	ErrNotFound           = errors.New("not found")
)

// NewDate builds a day-granularity UTC date.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Day() int   { return d.Time.Day() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Year() int  { return d.Time.Year() }

// IsEmpty reports whether the date is unset (optional dates use the zero value).
func (d Date) IsEmpty() bool { return d.IsZero() }

// MarshalJSON renders the date as "2006-01-02", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON accepts "2006-01-02" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

// DaysSince returns the whole days elapsed from start to d.
func (d Date) DaysSince(start Date) int {
	return int(d.Time.Sub(start.Time).Hours() / 24)
}

// Min returns the earlier of d and other.
func (d Date) Min(other Date) Date {
	if other.Before(d.Time) {
		return other
	}
	return d
}

// MonthStart returns the first day of (year, month).
func MonthStart(year, month int) Date {
	return NewDate(year, month, 1)
}

// MonthEnd returns the last day of (year, month).
func MonthEnd(year, month int) Date {
	return Date{Time: MonthStart(year, month).AddDate(0, 1, -1)}
}

// ValidMonth reports whether month is a calendar month number.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (e Entry) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.Kind == Expense && e.PaidFromAccountID == uuid.Nil {
		return ErrMissingAccount
	}

	switch e.Schedule {
	case OneTime:
		if e.Date.IsEmpty() {
			return ErrMissingDate
		}
	case Recurring:
		if e.StartDate.IsEmpty() {
			return ErrMissingStart
		}
		if !e.Cadence.Valid() {
			return ErrMissingCadence
		}
		if !e.EndDate.IsEmpty() && e.EndDate.Before(e.StartDate.Time) {
			return ErrEndBeforeStart
		}
	default:
		return ErrInvalidSchedule
	}

	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 100 {
		return ErrAccountNameTooLong
	}
	if a.InitialBalance.IsNegative() {
		return ErrNegativeBalance
	}
	switch a.Type {
	case Savings, Current, Cash, Wallet, Salary:
	default:
		return ErrInvalidAccountType
	}
	return nil
}

// EffectiveBalanceOverride returns the override value when the account is
// tracked externally, and false otherwise.
func (a Account) EffectiveBalanceOverride() (decimal.Decimal, bool) {
	if a.UseManualOverride && a.ManualOverride.Valid {
		return a.ManualOverride.Decimal, true
	}
	return decimal.Decimal{}, false
}
