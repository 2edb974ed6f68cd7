package core

const (
	Weekly       Cadence = "weekly"
	Monthly      Cadence = "monthly"
	Quarterly    Cadence = "quarterly"
	Every4Months Cadence = "every_4_months"
	HalfYearly   Cadence = "half_yearly"
	Yearly       Cadence = "yearly"
)

// Cadence is the recurrence interval class of a template. Weekly steps in
// 7-day increments; every other cadence is anchored to the calendar month of
// the start date and steps in whole months.
type Cadence string

// cadenceMonths maps month-anchored cadences to their interval in months.
// Weekly is absent on purpose: weeks do not align to month boundaries.
var cadenceMonths = map[Cadence]int{
	Monthly:      1,
	Quarterly:    3,
	Every4Months: 4,
	HalfYearly:   6,
	Yearly:       12,
}

// MonthInterval returns the month step of a month-anchored cadence.
// ok is false for Weekly and unknown cadences.
func (c Cadence) MonthInterval() (interval int, ok bool) {
	interval, ok = cadenceMonths[c]
	return interval, ok
}

func (c Cadence) Valid() bool {
	if c == Weekly {
		return true
	}
	_, ok := cadenceMonths[c]
	return ok
}

// Cadences lists every supported cadence, weekly first.
func Cadences() []Cadence {
	return []Cadence{Weekly, Monthly, Quarterly, Every4Months, HalfYearly, Yearly}
}
