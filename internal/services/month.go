package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MonthlyAggregator composes the recurrence calculator, the completion
// resolver and the balance reconstructor into the full dashboard view for
// one (user, year, month). Each call is a fresh computation over a single
// storage snapshot; nothing is cached or mutated here.
type MonthlyAggregator struct {
	store    Store
	balances *BalanceReconstructor
}

func NewMonthlyAggregator(store Store) *MonthlyAggregator {
	return &MonthlyAggregator{
		store:    store,
		balances: NewBalanceReconstructor(store),
	}
}

// Balances exposes the underlying reconstructor for callers that only need
// a single account balance.
func (a *MonthlyAggregator) Balances() *BalanceReconstructor {
	return a.balances
}

// BuildMonth assembles the month view: due items with completion state,
// income/expense and category totals, per-account balances and the
// 12-month balance trend for the selected year.
func (a *MonthlyAggregator) BuildMonth(ctx context.Context, userID string, year, month int) (core.MonthView, error) {
	if !core.ValidMonth(month) {
		return core.MonthView{}, core.ErrInvalidMonth
	}

	monthStart := core.MonthStart(year, month)
	monthEnd := core.MonthEnd(year, month)

	oneTimes, err := a.store.ListOneTimeEntries(ctx, userID, OneTimeFilter{
		From: monthStart,
		To:   monthEnd,
	})
	if err != nil {
		return core.MonthView{}, fmt.Errorf("list one-time entries: %w", err)
	}

	templates, err := a.store.ListRecurringTemplates(ctx, userID, TemplateFilter{
		ActiveOnly:   true,
		OverlapStart: monthStart,
		OverlapEnd:   monthEnd,
	})
	if err != nil {
		return core.MonthView{}, fmt.Errorf("list recurring templates: %w", err)
	}

	var due []core.Entry
	for _, tpl := range templates {
		if IsDueInMonth(tpl, year, month) {
			due = append(due, tpl)
		}
	}

	effective, completedParents, err := a.resolveCompletions(ctx, userID, due, monthStart)
	if err != nil {
		return core.MonthView{}, err
	}

	view := core.MonthView{
		Year:               year,
		Month:              month,
		TopExpenseCategory: "N/A",
	}

	a.aggregateTotals(&view, oneTimes, due, effective)
	view.CategoryTotals = a.categoryTotals(oneTimes, due, effective)
	view.DueItems = a.dueItems(oneTimes, due, effective, completedParents, monthStart)

	for _, tpl := range due {
		if completedParents[tpl.ID] {
			view.CompletedRecurring++
		} else {
			view.PendingRecurring++
		}
	}
	for _, ct := range view.CategoryTotals {
		if ct.Kind == core.Expense {
			view.TopExpenseCategory = ct.Name
			break // CategoryTotals is sorted by total descending
		}
	}
	for _, tpl := range due {
		if tpl.Kind != core.Expense {
			continue
		}
		if amt := effective[tpl.ID]; amt.GreaterThan(view.HighestDueExpense) {
			view.HighestDueExpense = amt
		}
	}

	if err := a.attachBalances(ctx, userID, year, month, &view); err != nil {
		return core.MonthView{}, err
	}

	view.MonthLabels = monthLabels()
	return view, nil
}

// resolveCompletions fetches the month's completion records for the due
// templates and resolves each template's effective amount.
func (a *MonthlyAggregator) resolveCompletions(ctx context.Context, userID string, due []core.Entry, period core.Date) (map[uuid.UUID]decimal.Decimal, map[uuid.UUID]bool, error) {
	effective := make(map[uuid.UUID]decimal.Decimal, len(due))
	completed := make(map[uuid.UUID]bool, len(due))
	if len(due) == 0 {
		return effective, completed, nil
	}

	ids := make([]uuid.UUID, len(due))
	for i, tpl := range due {
		ids[i] = tpl.ID
	}
	completions, err := a.store.ListCompletions(ctx, userID, ids, period)
	if err != nil {
		return nil, nil, fmt.Errorf("list completions: %w", err)
	}

	byParent := make(map[uuid.UUID][]core.Entry)
	for _, c := range completions {
		byParent[c.ParentID] = append(byParent[c.ParentID], c)
	}
	for _, tpl := range due {
		effective[tpl.ID] = EffectiveAmount(tpl, byParent[tpl.ID])
		completed[tpl.ID] = len(byParent[tpl.ID]) > 0
	}
	return effective, completed, nil
}

func (a *MonthlyAggregator) aggregateTotals(view *core.MonthView, oneTimes, due []core.Entry, effective map[uuid.UUID]decimal.Decimal) {
	for _, e := range oneTimes {
		switch e.Kind {
		case core.Income:
			view.TotalIncome = view.TotalIncome.Add(e.Amount)
		case core.Expense:
			view.TotalExpense = view.TotalExpense.Add(e.Amount)
		}
	}
	for _, tpl := range due {
		amt := effective[tpl.ID]
		switch tpl.Kind {
		case core.Income:
			view.TotalIncome = view.TotalIncome.Add(amt)
		case core.Expense:
			view.TotalExpense = view.TotalExpense.Add(amt)
		}
	}
	view.Net = view.TotalIncome.Sub(view.TotalExpense)
}

// categoryTotals merges one-time and due-recurring sums per (category, kind),
// sorted by total descending.
func (a *MonthlyAggregator) categoryTotals(oneTimes, due []core.Entry, effective map[uuid.UUID]decimal.Decimal) []core.CategoryTotal {
	type key struct {
		name string
		kind core.Kind
	}
	totals := make(map[key]decimal.Decimal)

	add := func(e core.Entry, amount decimal.Decimal) {
		name := e.CategoryName
		if name == "" {
			name = "Uncategorized"
		}
		k := key{name: name, kind: e.Kind}
		totals[k] = totals[k].Add(amount)
	}
	for _, e := range oneTimes {
		add(e, e.Amount)
	}
	for _, tpl := range due {
		add(tpl, effective[tpl.ID])
	}

	out := make([]core.CategoryTotal, 0, len(totals))
	for k, total := range totals {
		out = append(out, core.CategoryTotal{Name: k.name, Kind: k.kind, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// dueItems builds the month's item list: recurring due items first, then
// one-time movements, ordered by kind then title.
func (a *MonthlyAggregator) dueItems(oneTimes, due []core.Entry, effective map[uuid.UUID]decimal.Decimal, completedParents map[uuid.UUID]bool, monthStart core.Date) []core.DueItem {
	items := make([]core.DueItem, 0, len(due)+len(oneTimes))

	for _, tpl := range due {
		state := core.DuePending
		if completedParents[tpl.ID] {
			state = core.DueCompleted
		}
		item := core.DueItem{
			EntryID:   tpl.ID,
			Title:     tpl.Title,
			Amount:    effective[tpl.ID],
			Kind:      tpl.Kind,
			Recurring: true,
			State:     state,
			DueDate:   monthStart,
		}
		if total, ok := TotalScheduledInstallments(tpl); ok {
			item.InstallmentsTotal = total
			item.InstallmentsDone = CountOccurrencesUntil(tpl, core.MonthEnd(monthStart.Year(), monthStart.Month()))
		}
		items = append(items, item)
	}

	for _, e := range oneTimes {
		state := core.DuePending
		if e.Completed {
			state = core.DueCompleted
		}
		items = append(items, core.DueItem{
			EntryID:   e.ID,
			Title:     e.Title,
			Amount:    e.Amount,
			Kind:      e.Kind,
			Recurring: false,
			State:     state,
			DueDate:   e.Date,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		return items[i].Title < items[j].Title
	})
	return items
}

// attachBalances computes each account's balance for the selected month and
// its 12-point series for the year. Accounts are independent, so the series
// are computed concurrently.
func (a *MonthlyAggregator) attachBalances(ctx context.Context, userID string, year, month int, view *core.MonthView) error {
	accounts, err := a.store.ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	view.Balances = make([]core.AccountBalance, len(accounts))
	view.BalanceTrend = make([]core.BalanceSeries, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		g.Go(func() error {
			series := make([]decimal.Decimal, 12)
			for m := 1; m <= 12; m++ {
				balance, err := a.balances.balanceFor(gctx, account, year, m)
				if err != nil {
					return fmt.Errorf("balance for %s month %d: %w", account.Name, m, err)
				}
				series[m-1] = balance
			}
			view.Balances[i] = core.AccountBalance{
				AccountID:      account.ID,
				AccountName:    account.Name,
				Balance:        series[month-1],
				ManualOverride: account.UseManualOverride,
			}
			view.BalanceTrend[i] = core.BalanceSeries{
				AccountName:     account.Name,
				MonthlyBalances: series,
			}
			return nil
		})
	}
	return g.Wait()
}

func monthLabels() []string {
	labels := make([]string, 12)
	for m := 1; m <= 12; m++ {
		labels[m-1] = time.Month(m).String()[:3]
	}
	return labels
}
