// Package services implements the recurrence and balance reconstruction
// engine and the month aggregation built on top of it.
//
// This file implements the Strategy Pattern for recurrence arithmetic. Each
// cadence class has a rule that decides whether a template has an occurrence
// in a month and how many occurrences fall between two dates.
package services

import (
	"fmt"

	"hisab/internal/core"
)

// occurrenceRule is the strategy interface for one cadence class.
type occurrenceRule interface {
	// dueInMonth reports whether an occurrence of the template falls within
	// [monthStart, monthEnd]. Start/end window checks are done by the caller.
	dueInMonth(tpl core.Entry, monthStart, monthEnd core.Date) bool

	// countThrough returns the inclusive occurrence count from the template's
	// start date through end. end is never before the start date.
	countThrough(tpl core.Entry, end core.Date) int
}

// weeklyRule steps in 7-day increments from the start date. Weeks do not
// align to month boundaries, so this is the only cadence needing
// day-granularity arithmetic.
type weeklyRule struct{}

func (weeklyRule) dueInMonth(tpl core.Entry, monthStart, monthEnd core.Date) bool {
	probe := tpl.StartDate
	if probe.Before(monthStart.Time) {
		// Round up from the start date in 7-day steps to the first
		// candidate at or after the month start.
		jumps := monthStart.DaysSince(probe) / 7
		probe = core.Date{Time: probe.AddDate(0, 0, jumps*7)}
		for probe.Before(monthStart.Time) {
			probe = core.Date{Time: probe.AddDate(0, 0, 7)}
		}
	}

	if probe.After(monthEnd.Time) {
		return false
	}
	if !tpl.EndDate.IsEmpty() && probe.After(tpl.EndDate.Time) {
		return false
	}
	return true
}

func (weeklyRule) countThrough(tpl core.Entry, end core.Date) int {
	return end.DaysSince(tpl.StartDate)/7 + 1
}

// monthAnchoredRule covers every month-multiple cadence. Occurrences are
// anchored to the calendar month of the start date rather than its
// day-of-month, so a start on the 31st never skips February.
type monthAnchoredRule struct {
	interval int
}

func (r monthAnchoredRule) dueInMonth(tpl core.Entry, monthStart, _ core.Date) bool {
	diff := monthsBetween(tpl.StartDate, monthStart)
	return diff >= 0 && diff%r.interval == 0
}

func (r monthAnchoredRule) countThrough(tpl core.Entry, end core.Date) int {
	diff := monthsBetween(tpl.StartDate, end)
	if diff < 0 {
		return 0
	}
	return diff/r.interval + 1
}

// monthsBetween is the signed calendar-month difference from a to b,
// ignoring days of month.
func monthsBetween(a, b core.Date) int {
	return (b.Year()-a.Year())*12 + b.Month() - a.Month()
}

// occurrenceRules maps cadences to their rules.
var occurrenceRules = map[core.Cadence]occurrenceRule{
	core.Weekly:       weeklyRule{},
	core.Monthly:      monthAnchoredRule{interval: 1},
	core.Quarterly:    monthAnchoredRule{interval: 3},
	core.Every4Months: monthAnchoredRule{interval: 4},
	core.HalfYearly:   monthAnchoredRule{interval: 6},
	core.Yearly:       monthAnchoredRule{interval: 12},
}

// ruleFor returns the occurrence rule for a cadence.
func ruleFor(cadence core.Cadence) (occurrenceRule, error) {
	rule, ok := occurrenceRules[cadence]
	if !ok {
		return nil, fmt.Errorf("unknown cadence: %s", cadence)
	}
	return rule, nil
}

// IsDueInMonth reports whether the recurring template has an occurrence in
// (year, month). A template without a start date or a known cadence is never
// due; that is a legitimate "not applicable" state, not an error.
func IsDueInMonth(tpl core.Entry, year, month int) bool {
	if tpl.StartDate.IsEmpty() {
		return false
	}
	rule, err := ruleFor(tpl.Cadence)
	if err != nil {
		return false
	}

	monthStart := core.MonthStart(year, month)
	monthEnd := core.MonthEnd(year, month)

	if monthEnd.Before(tpl.StartDate.Time) {
		return false // not yet begun
	}
	if !tpl.EndDate.IsEmpty() && monthStart.After(tpl.EndDate.Time) {
		return false // already ended
	}

	return rule.dueInMonth(tpl, monthStart, monthEnd)
}

// CountOccurrencesUntil returns how many occurrences of the template fall on
// or before asOf, counting the one on the start date itself as occurrence 1.
// The template's end date caps the count when it is earlier than asOf.
func CountOccurrencesUntil(tpl core.Entry, asOf core.Date) int {
	if tpl.StartDate.IsEmpty() {
		return 0
	}
	rule, err := ruleFor(tpl.Cadence)
	if err != nil {
		return 0
	}

	effectiveEnd := asOf
	if !tpl.EndDate.IsEmpty() {
		effectiveEnd = effectiveEnd.Min(tpl.EndDate)
	}
	if effectiveEnd.Before(tpl.StartDate.Time) {
		return 0
	}

	return rule.countThrough(tpl, effectiveEnd)
}

// TotalScheduledInstallments returns how many occurrences the whole series
// holds. ok is false for open-ended templates (no end date).
func TotalScheduledInstallments(tpl core.Entry) (total int, ok bool) {
	if tpl.EndDate.IsEmpty() || tpl.StartDate.IsEmpty() || !tpl.Cadence.Valid() {
		return 0, false
	}
	return CountOccurrencesUntil(tpl, tpl.EndDate), true
}
