package engine

import "time"

// =============================================================================
// PERIOD - Inclusive date range for payroll aggregation
// =============================================================================

// Period is an inclusive [Start, End] range of calendar dates. Payroll
// totals are always computed for a period, never "all time".
type Period struct {
	Start time.Time
	End   time.Time
}

func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: DateOnly(start), End: DateOnly(end)}
	if p.End.Before(p.Start) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains reports whether a date falls inside the period.
func (p Period) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns every calendar date in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// MonthOf returns the calendar-month period containing a date. Convenience
// for the common payroll run.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Period{Start: start, End: end}
}
