package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueState classifies a template for a queried month.
type DueState string

const (
	NotDue       DueState = "not_due"
	DuePending   DueState = "due_pending"
	DueCompleted DueState = "due_completed"
)

type (
	// DueItem is one row of the month view: a one-time movement dated in the
	// month or a recurring template due in it, with the completion-resolved
	// amount.
	DueItem struct {
		EntryID   uuid.UUID       `json:"entry_id"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Kind      Kind            `json:"kind"`
		Recurring bool            `json:"recurring"`
		State     DueState        `json:"state"`
		DueDate   Date            `json:"due_date"`

		// Installment progress for end-dated series; zero Total means open-ended.
		InstallmentsDone  int `json:"installments_done,omitempty"`
		InstallmentsTotal int `json:"installments_total,omitempty"`
	}

	CategoryTotal struct {
		Name  string          `json:"name"`
		Kind  Kind            `json:"kind"`
		Total decimal.Decimal `json:"total"`
	}

	AccountBalance struct {
		AccountID      uuid.UUID       `json:"account_id"`
		AccountName    string          `json:"account_name"`
		Balance        decimal.Decimal `json:"balance"`
		ManualOverride bool            `json:"manual_override"`
	}

	// BalanceSeries is one account's balance at the end of each month of the
	// selected year, January through December.
	BalanceSeries struct {
		AccountName     string            `json:"account_name"`
		MonthlyBalances []decimal.Decimal `json:"monthly_balances"`
	}

	// MonthView is the full dashboard payload for (user, year, month).
	MonthView struct {
		Year  int `json:"year"`
		Month int `json:"month"`

		TotalIncome  decimal.Decimal `json:"total_income"`
		TotalExpense decimal.Decimal `json:"total_expense"`
		Net          decimal.Decimal `json:"net"`

		DueItems       []DueItem       `json:"due_items"`
		CategoryTotals []CategoryTotal `json:"category_totals"`

		Balances     []AccountBalance `json:"balances"`
		BalanceTrend []BalanceSeries  `json:"balance_trend"`
		MonthLabels  []string         `json:"month_labels"`

		CompletedRecurring int             `json:"completed_recurring"`
		PendingRecurring   int             `json:"pending_recurring"`
		TopExpenseCategory string          `json:"top_expense_category"`
		HighestDueExpense  decimal.Decimal `json:"highest_due_expense"`
	}
)
