package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year, month int
		wantEndDay  int
	}{
		{2026, 1, 31},
		{2026, 2, 28},
		{2024, 2, 29}, // leap year
		{2026, 4, 30},
		{2026, 12, 31},
	}
	for _, tc := range cases {
		start := MonthStart(tc.year, tc.month)
		end := MonthEnd(tc.year, tc.month)
		if start.Day() != 1 || start.Month() != tc.month || start.Year() != tc.year {
			t.Fatalf("MonthStart(%d, %d) = %v", tc.year, tc.month, start)
		}
		if end.Day() != tc.wantEndDay || end.Month() != tc.month {
			t.Fatalf("MonthEnd(%d, %d) = %v, want day %d", tc.year, tc.month, end, tc.wantEndDay)
		}
	}
}

func TestDateDaysSince(t *testing.T) {
	start := NewDate(2026, 1, 5)
	if got := NewDate(2026, 1, 12).DaysSince(start); got != 7 {
		t.Fatalf("DaysSince = %d, want 7", got)
	}
	if got := NewDate(2026, 1, 5).DaysSince(start); got != 0 {
		t.Fatalf("DaysSince same day = %d, want 0", got)
	}
}

func TestCadenceMonthInterval(t *testing.T) {
	cases := []struct {
		cadence Cadence
		want    int
		ok      bool
	}{
		{Monthly, 1, true},
		{Quarterly, 3, true},
		{Every4Months, 4, true},
		{HalfYearly, 6, true},
		{Yearly, 12, true},
		{Weekly, 0, false},
		{Cadence("daily"), 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.cadence.MonthInterval()
		if got != tc.want || ok != tc.ok {
			t.Errorf("MonthInterval(%s) = (%d, %v), want (%d, %v)", tc.cadence, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	account := uuid.New()
	oneTime := Entry{
		Title:             "Groceries",
		Amount:            decimal.NewFromInt(1200),
		Kind:              Expense,
		Schedule:          OneTime,
		Date:              NewDate(2026, 3, 14),
		PaidFromAccountID: account,
	}
	if err := oneTime.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	recurring := Entry{
		Title:               "Salary",
		Amount:              decimal.NewFromInt(85000),
		Kind:                Income,
		Schedule:            Recurring,
		Cadence:             Monthly,
		StartDate:           NewDate(2025, 11, 1),
		ReceivedToAccountID: account,
	}
	if err := recurring.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name  string
		entry Entry
	}{
		{"empty title", Entry{Amount: decimal.NewFromInt(1), Kind: Income, Schedule: OneTime, Date: NewDate(2026, 1, 1)}},
		{"zero amount", Entry{Title: "a", Kind: Income, Schedule: OneTime, Date: NewDate(2026, 1, 1)}},
		{"expense without account", Entry{Title: "a", Amount: decimal.NewFromInt(1), Kind: Expense, Schedule: OneTime, Date: NewDate(2026, 1, 1)}},
		{"one-time without date", Entry{Title: "a", Amount: decimal.NewFromInt(1), Kind: Income, Schedule: OneTime}},
		{"recurring without start", Entry{Title: "a", Amount: decimal.NewFromInt(1), Kind: Income, Schedule: Recurring, Cadence: Monthly}},
		{"recurring without cadence", Entry{Title: "a", Amount: decimal.NewFromInt(1), Kind: Income, Schedule: Recurring, StartDate: NewDate(2026, 1, 1)}},
		{"end before start", Entry{Title: "a", Amount: decimal.NewFromInt(1), Kind: Income, Schedule: Recurring, Cadence: Monthly, StartDate: NewDate(2026, 2, 1), EndDate: NewDate(2026, 1, 1)}},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.entry.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "HDFC Savings", Type: Savings, InitialBalance: decimal.NewFromInt(25000)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Account{
		{Name: "", Type: Savings},
		{Name: "a", Type: AccountType("offshore")},
		{Name: "a", Type: Cash, InitialBalance: decimal.NewFromInt(-1)},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEffectiveBalanceOverride(t *testing.T) {
	a := Account{
		Name:              "Cash",
		Type:              Cash,
		UseManualOverride: true,
		ManualOverride:    decimal.NullDecimal{Decimal: decimal.NewFromInt(5000), Valid: true},
	}
	v, ok := a.EffectiveBalanceOverride()
	if !ok || !v.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("override = (%v, %v), want (5000, true)", v, ok)
	}

	a.UseManualOverride = false
	if _, ok := a.EffectiveBalanceOverride(); ok {
		t.Fatalf("expected no override when flag is off")
	}

	a.UseManualOverride = true
	a.ManualOverride = decimal.NullDecimal{}
	if _, ok := a.EffectiveBalanceOverride(); ok {
		t.Fatalf("expected no override when value is unset")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, 4, 30)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-04-30"` {
		t.Fatalf("marshal = %s", b)
	}

	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("round trip = %v", back)
	}

	var zero Date
	if b, _ := zero.MarshalJSON(); string(b) != "null" {
		t.Fatalf("zero date marshal = %s", b)
	}
}
