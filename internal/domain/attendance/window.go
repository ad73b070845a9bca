package attendance

import "time"

// Window is the inclusive date range a semester covers. Attendance can only
// be recorded for days inside it.
type Window struct {
	Start time.Time
	End   time.Time
}

// dateOnly normalizes t to midnight UTC so all comparisons work at civil-day
// granularity regardless of the wall clock or zone t carried.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains returns true if the given date falls within the window.
// PRE: date is a valid time
// INVARIANT: Window fields are not mutated
func (w Window) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(w.Start)) && !d.After(dateOnly(w.End))
}

// AllowsMonth returns true if any day of the given month falls within the
// window. Months with no overlap are blocked from calendar navigation.
func (w Window) AllowsMonth(key MonthKey) bool {
	return !key.Date(1).After(dateOnly(w.End)) && !key.Date(key.Days()).Before(dateOnly(w.Start))
}

// ClampMonth returns the month of date pulled inside the window: dates
// before the window yield its first month, dates after it the last. Used to
// pick the initial month a calendar opens on.
func (w Window) ClampMonth(date time.Time) MonthKey {
	d := dateOnly(date)
	if d.Before(dateOnly(w.Start)) {
		return MonthKeyOf(w.Start)
	}
	if d.After(dateOnly(w.End)) {
		return MonthKeyOf(w.End)
	}
	return MonthKeyOf(d)
}
