package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsightsService answers the natural-language layer's financial queries:
// balance, income and expense for a month, optionally narrowed to one
// account by name. It returns plain data; phrasing is the caller's concern.
type InsightsService struct {
	store    Store
	balances *BalanceReconstructor
}

func NewInsightsService(store Store) *InsightsService {
	return &InsightsService{store: store, balances: NewBalanceReconstructor(store)}
}

type (
	// AccountAmount is one account's share of a query result, rounded to
	// two fraction digits at this boundary.
	AccountAmount struct {
		AccountID      uuid.UUID       `json:"account_id"`
		AccountName    string          `json:"account_name"`
		Amount         decimal.Decimal `json:"amount"`
		ManualOverride bool            `json:"manual_override,omitempty"`
	}

	// QueryResult either carries data or asks the user to disambiguate an
	// account name.
	QueryResult struct {
		Intent      string          `json:"intent"`
		Year        int             `json:"year"`
		Month       int             `json:"month"`
		MonthLabel  string          `json:"month_label"`
		Accounts    []AccountAmount `json:"accounts"`
		TotalAmount decimal.Decimal `json:"total_amount"`

		NeedsClarification bool   `json:"needs_clarification,omitempty"`
		Clarification      string `json:"clarification,omitempty"`
	}
)

// Balance reports each selected account's balance as of the month end.
func (s *InsightsService) Balance(ctx context.Context, userID string, year, month int, accountName string) (QueryResult, error) {
	if !core.ValidMonth(month) {
		return QueryResult{}, core.ErrInvalidMonth
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return QueryResult{}, fmt.Errorf("list accounts: %w", err)
	}
	selected, clarification := selectAccounts(accounts, accountName)
	if clarification != "" {
		return QueryResult{NeedsClarification: true, Clarification: clarification}, nil
	}

	result := newQueryResult("balance", year, month)
	for _, account := range selected {
		balance, err := s.balances.balanceFor(ctx, account, year, month)
		if err != nil {
			return QueryResult{}, err
		}
		result.Accounts = append(result.Accounts, AccountAmount{
			AccountID:      account.ID,
			AccountName:    account.Name,
			Amount:         core.Round2(balance),
			ManualOverride: account.UseManualOverride,
		})
	}
	finishQueryResult(&result)
	return result, nil
}

// Income reports the month's income per account: one-time receipts plus due
// recurring income at completion-resolved amounts.
func (s *InsightsService) Income(ctx context.Context, userID string, year, month int, accountName string) (QueryResult, error) {
	return s.monthlyFlow(ctx, userID, year, month, accountName, core.Income)
}

// Expense is the expense-side counterpart of Income.
func (s *InsightsService) Expense(ctx context.Context, userID string, year, month int, accountName string) (QueryResult, error) {
	return s.monthlyFlow(ctx, userID, year, month, accountName, core.Expense)
}

func (s *InsightsService) monthlyFlow(ctx context.Context, userID string, year, month int, accountName string, kind core.Kind) (QueryResult, error) {
	if !core.ValidMonth(month) {
		return QueryResult{}, core.ErrInvalidMonth
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return QueryResult{}, fmt.Errorf("list accounts: %w", err)
	}
	selected, clarification := selectAccounts(accounts, accountName)
	if clarification != "" {
		return QueryResult{NeedsClarification: true, Clarification: clarification}, nil
	}

	monthStart := core.MonthStart(year, month)
	monthEnd := core.MonthEnd(year, month)

	oneTimes, err := s.store.ListOneTimeEntries(ctx, userID, OneTimeFilter{
		Kind: kind,
		From: monthStart,
		To:   monthEnd,
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("list one-time entries: %w", err)
	}

	templates, err := s.store.ListRecurringTemplates(ctx, userID, TemplateFilter{
		Kind:         kind,
		ActiveOnly:   true,
		OverlapStart: monthStart,
		OverlapEnd:   monthEnd,
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("list recurring templates: %w", err)
	}
	var due []core.Entry
	for _, tpl := range templates {
		if IsDueInMonth(tpl, year, month) {
			due = append(due, tpl)
		}
	}

	effective := make(map[uuid.UUID]decimal.Decimal, len(due))
	if len(due) > 0 {
		ids := make([]uuid.UUID, len(due))
		for i, tpl := range due {
			ids[i] = tpl.ID
		}
		completions, err := s.store.ListCompletions(ctx, userID, ids, monthStart)
		if err != nil {
			return QueryResult{}, fmt.Errorf("list completions: %w", err)
		}
		byParent := make(map[uuid.UUID][]core.Entry)
		for _, c := range completions {
			byParent[c.ParentID] = append(byParent[c.ParentID], c)
		}
		for _, tpl := range due {
			effective[tpl.ID] = EffectiveAmount(tpl, byParent[tpl.ID])
		}
	}

	flowAccount := func(e core.Entry) uuid.UUID {
		if kind == core.Income {
			return e.ReceivedToAccountID
		}
		return e.PaidFromAccountID
	}

	selectedIDs := make(map[uuid.UUID]bool, len(selected))
	for _, a := range selected {
		selectedIDs[a.ID] = true
	}
	narrowed := accountName != ""

	totals := make(map[uuid.UUID]decimal.Decimal)
	addAmount := func(accountID uuid.UUID, amount decimal.Decimal) {
		if narrowed && !selectedIDs[accountID] {
			return
		}
		totals[accountID] = totals[accountID].Add(amount)
	}
	for _, e := range oneTimes {
		addAmount(flowAccount(e), e.Amount)
	}
	for _, tpl := range due {
		addAmount(flowAccount(tpl), effective[tpl.ID])
	}

	namesByID := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		namesByID[a.ID] = a.Name
	}

	result := newQueryResult(string(kind), year, month)
	for accountID, total := range totals {
		if total.IsZero() {
			continue
		}
		name := "Unassigned"
		if accountID != uuid.Nil {
			if n, ok := namesByID[accountID]; ok {
				name = n
			} else {
				name = "Unknown account"
			}
		}
		result.Accounts = append(result.Accounts, AccountAmount{
			AccountID:   accountID,
			AccountName: name,
			Amount:      core.Round2(total),
		})
	}
	finishQueryResult(&result)
	return result, nil
}

// selectAccounts narrows the account list by name: exact case-insensitive
// match first, then a unique substring match. Ambiguity or no match yields a
// clarification question instead of a guess.
func selectAccounts(accounts []core.Account, name string) ([]core.Account, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return accounts, ""
	}

	var exact, partial []core.Account
	for _, a := range accounts {
		if strings.EqualFold(a.Name, name) {
			exact = append(exact, a)
		}
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(name)) {
			partial = append(partial, a)
		}
	}
	if len(exact) == 1 {
		return exact, ""
	}
	if len(partial) == 1 {
		return partial, ""
	}
	if len(partial) == 0 {
		available := "No accounts found."
		if len(accounts) > 0 {
			available = "Available accounts: " + joinAccountNames(accounts) + "."
		}
		return nil, fmt.Sprintf("I couldn't find account %q. %s", name, available)
	}
	return nil, fmt.Sprintf("I found multiple accounts matching %q: %s. Which one do you mean?", name, joinAccountNames(partial))
}

func joinAccountNames(accounts []core.Account) string {
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func newQueryResult(intent string, year, month int) QueryResult {
	return QueryResult{
		Intent:     intent,
		Year:       year,
		Month:      month,
		MonthLabel: time.Month(month).String() + " " + fmt.Sprint(year),
	}
}

func finishQueryResult(r *QueryResult) {
	sort.Slice(r.Accounts, func(i, j int) bool {
		return r.Accounts[i].Amount.GreaterThan(r.Accounts[j].Amount)
	})
	total := decimal.Decimal{}
	for _, a := range r.Accounts {
		total = total.Add(a.Amount)
	}
	r.TotalAmount = core.Round2(total)
}
