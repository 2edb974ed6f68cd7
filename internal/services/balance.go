package services

import (
	"context"
	"fmt"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceReconstructor derives an account's balance at the end of any month.
// Balances are never stored; they are the initial balance plus every
// scheduled movement up to the month end. Recurring movements contribute
// their template amount per occurrence: completion overrides adjust the
// current month's reported view, not the historical ledger.
type BalanceReconstructor struct {
	store Store
}

func NewBalanceReconstructor(store Store) *BalanceReconstructor {
	return &BalanceReconstructor{store: store}
}

// BalanceAsOf computes the account balance at the end of (year, month).
// Accounts with a manual override short-circuit to the override value.
// Returns core.ErrNotFound when the account is absent or owned by another
// user, core.ErrInvalidMonth for a month outside 1-12.
func (b *BalanceReconstructor) BalanceAsOf(ctx context.Context, userID string, accountID uuid.UUID, year, month int) (decimal.Decimal, error) {
	if !core.ValidMonth(month) {
		return decimal.Decimal{}, core.ErrInvalidMonth
	}

	account, err := b.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return b.balanceFor(ctx, account, year, month)
}

// balanceFor reconstructs with the account already in hand, so the 12-month
// trend does not refetch the account per month.
func (b *BalanceReconstructor) balanceFor(ctx context.Context, account core.Account, year, month int) (decimal.Decimal, error) {
	if override, ok := account.EffectiveBalanceOverride(); ok {
		return override, nil
	}

	monthEnd := core.MonthEnd(year, month)
	userID := account.UserID

	credits, err := b.sumOneTime(ctx, userID, OneTimeFilter{
		Kind:       core.Income,
		ReceivedTo: account.ID,
		To:         monthEnd,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	debits, err := b.sumOneTime(ctx, userID, OneTimeFilter{
		Kind:     core.Expense,
		PaidFrom: account.ID,
		To:       monthEnd,
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	// Note: no active-only filter here. A deactivated template's past
	// occurrences stay on the ledger; deactivation stops future dueness only.
	recurringCredits, err := b.sumRecurring(ctx, userID, TemplateFilter{
		Kind:            core.Income,
		ReceivedTo:      account.ID,
		StartOnOrBefore: monthEnd,
	}, monthEnd)
	if err != nil {
		return decimal.Decimal{}, err
	}

	recurringDebits, err := b.sumRecurring(ctx, userID, TemplateFilter{
		Kind:            core.Expense,
		PaidFrom:        account.ID,
		StartOnOrBefore: monthEnd,
	}, monthEnd)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return account.InitialBalance.
		Add(credits).
		Add(recurringCredits).
		Sub(debits).
		Sub(recurringDebits), nil
}

func (b *BalanceReconstructor) sumOneTime(ctx context.Context, userID string, f OneTimeFilter) (decimal.Decimal, error) {
	entries, err := b.store.ListOneTimeEntries(ctx, userID, f)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("list one-time entries: %w", err)
	}
	total := decimal.Decimal{}
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (b *BalanceReconstructor) sumRecurring(ctx context.Context, userID string, f TemplateFilter, monthEnd core.Date) (decimal.Decimal, error) {
	templates, err := b.store.ListRecurringTemplates(ctx, userID, f)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("list recurring templates: %w", err)
	}
	total := decimal.Decimal{}
	for _, tpl := range templates {
		n := CountOccurrencesUntil(tpl, monthEnd)
		if n == 0 {
			continue
		}
		total = total.Add(tpl.Amount.Mul(decimal.NewFromInt(int64(n))))
	}
	return total, nil
}
