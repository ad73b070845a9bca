package attendance

import (
	"math"
	"time"
)

// DefaultLeaveEvery is the classes-per-leave ratio used when no other ratio
// is configured: one allowed absence per four conducted classes.
const DefaultLeaveEvery = 4

// DayState is the derived classification of one calendar day for one course.
// It is computed on demand and never persisted.
type DayState string

const (
	StateOutside DayState = "outside"
	StateFuture  DayState = "future"
	StateWeekend DayState = "weekend"
	StateHoliday DayState = "holiday"
	StateAbsent  DayState = "absent"
	StatePresent DayState = "present"
)

// Toggleable reports whether a day in this state accepts marking. Weekends,
// future days and days outside the semester never do.
func (s DayState) Toggleable() bool {
	switch s {
	case StateHoliday, StateAbsent, StatePresent:
		return true
	}
	return false
}

// MonthStats are the per-month attendance counts for one course. Present is
// derived, never stored: conducted minus absent.
type MonthStats struct {
	Conducted int `json:"conducted"`
	Absent    int `json:"absent"`
	Off       int `json:"off"`
}

// Present returns the number of conducted classes attended.
func (s MonthStats) Present() int {
	return s.Conducted - s.Absent
}

// Percent returns the attendance percentage rounded to the nearest integer,
// and 0 when no classes were conducted.
func (s MonthStats) Percent() int {
	return percent(s.Conducted, s.Absent)
}

// Totals are the cumulative semester counts for one course, including the
// allowed-leave budget.
type Totals struct {
	Conducted   int `json:"conducted"`
	Absent      int `json:"absent"`
	Off         int `json:"off"`
	LeaveBudget int `json:"leave_budget"`
	LeavesLeft  int `json:"leaves_left"`
}

// Percent returns the cumulative attendance percentage rounded to the
// nearest integer, and 0 when no classes were conducted.
func (t Totals) Percent() int {
	return percent(t.Conducted, t.Absent)
}

func percent(conducted, absent int) int {
	if conducted == 0 {
		return 0
	}
	return int(math.Round(100 * float64(conducted-absent) / float64(conducted)))
}

// Classify derives the state of one day for one course. Decision order,
// first match wins: outside the window, then future, then weekend, then the
// off sheet, then the absence sheet, then present. The off sheet is checked
// first, so a day marked in both sheets classifies as holiday.
// PRE: book is non-nil; date and today are valid times
// POST: Returns a DayState, never an error; unknown courses read as unmarked
// INVARIANT: book is not mutated
func Classify(book *Book, courseID string, date time.Time, window Window, today time.Time) DayState {
	d := dateOnly(date)
	if !window.Contains(d) {
		return StateOutside
	}
	if d.After(dateOnly(today)) {
		return StateFuture
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return StateWeekend
	}
	key := MonthKeyOf(d)
	if book.Marked(courseID, KindOff, key, d.Day()) {
		return StateHoliday
	}
	if book.Marked(courseID, KindAbsent, key, d.Day()) {
		return StateAbsent
	}
	return StatePresent
}

// MonthlyStats counts conducted, absent and off class days for one course in
// one month. Only days inside the window and not after today are visited:
// the counted range is the intersection of the month with the window and
// with everything up to today, so a month wholly in the future or wholly
// outside the window yields zeros. Weekends are skipped entirely and count
// in no bucket; off days are bucketed before conducted, and absences count
// within conducted.
// PRE: book is non-nil; today is a valid time
// POST: Returns non-negative counts, never an error
// INVARIANT: book is not mutated; Absent <= Conducted
func MonthlyStats(book *Book, courseID string, key MonthKey, window Window, today time.Time) MonthStats {
	var stats MonthStats
	lo := key.Date(1)
	if s := dateOnly(window.Start); s.After(lo) {
		lo = s
	}
	hi := key.Date(key.Days())
	if e := dateOnly(window.End); e.Before(hi) {
		hi = e
	}
	if t := dateOnly(today); t.Before(hi) {
		hi = t
	}
	for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if book.Marked(courseID, KindOff, key, d.Day()) {
			stats.Off++
			continue
		}
		stats.Conducted++
		if book.Marked(courseID, KindAbsent, key, d.Day()) {
			stats.Absent++
		}
	}
	return stats
}

// CumulativeStats sums MonthlyStats for one course over every month from
// the window's first month through the month of today (or of the window end,
// whichever comes first), then derives the leave budget: one allowed absence
// per leaveEvery conducted classes, rounded down, with the remaining budget
// clamped at zero. A leaveEvery of zero or less falls back to
// DefaultLeaveEvery. When today precedes the window the totals are all zero.
// PRE: book is non-nil; today is a valid time
// POST: Returns non-negative totals, never an error
// INVARIANT: book is not mutated
func CumulativeStats(book *Book, courseID string, window Window, today time.Time, leaveEvery int) Totals {
	if leaveEvery <= 0 {
		leaveEvery = DefaultLeaveEvery
	}
	var totals Totals
	end := dateOnly(today)
	if e := dateOnly(window.End); e.Before(end) {
		end = e
	}
	if end.Before(dateOnly(window.Start)) {
		return totals
	}
	last := MonthKeyOf(end)
	for key := MonthKeyOf(window.Start); !key.After(last); key = key.Next() {
		m := MonthlyStats(book, courseID, key, window, today)
		totals.Conducted += m.Conducted
		totals.Absent += m.Absent
		totals.Off += m.Off
	}
	totals.LeaveBudget = totals.Conducted / leaveEvery
	totals.LeavesLeft = totals.LeaveBudget - totals.Absent
	if totals.LeavesLeft < 0 {
		totals.LeavesLeft = 0
	}
	return totals
}
