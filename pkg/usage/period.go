package usage

import "time"

// PeriodLayout is the layout of a usage period key.
const PeriodLayout = "2006-01"

// Period returns the calendar month key of t in UTC, e.g. "2024-02".
func Period(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}
