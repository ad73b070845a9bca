package projections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rollbook/internal/domain/attendance"
	"rollbook/internal/domain/course"
	"rollbook/internal/domain/semester"
)

// Projection errors
var (
	ErrUnknownCourse        = errors.New("unknown course")
	ErrMonthOutsideSemester = errors.New("month is outside the semester")
)

// CalendarBookStore defines the book store interface needed by the calendar projection.
type CalendarBookStore interface {
	Load(ctx context.Context, accountID string) (*attendance.Book, error)
}

// CalendarCourseStore defines the course store interface needed by the calendar projection.
type CalendarCourseStore interface {
	GetByCode(ctx context.Context, code string) (course.Course, error)
}

// CalendarSemesterStore defines the semester store interface needed by the calendar projection.
type CalendarSemesterStore interface {
	GetActive(ctx context.Context) (semester.Semester, error)
}

// CourseCalendarQuery carries input for the course calendar projection.
// Year and Month both zero select the default month for today.
type CourseCalendarQuery struct {
	AccountID  string
	CourseCode string
	Year       int
	Month      int
}

// CourseCalendarDeps holds dependencies for the course calendar projection.
type CourseCalendarDeps struct {
	BookStore     CalendarBookStore
	CourseStore   CalendarCourseStore
	SemesterStore CalendarSemesterStore
	LeaveEvery    int
}

// DayCell is one cell of the calendar grid.
type DayCell struct {
	Day        int
	State      attendance.DayState
	Toggleable bool
}

// CourseCalendarResult carries the output of the course calendar projection.
type CourseCalendarResult struct {
	Course   course.Course
	Semester semester.Semester
	Key      attendance.MonthKey
	Offset   int // leading blank cells so day 1 lands under its weekday, Monday first
	Cells    []DayCell
	Month    attendance.MonthStats
	Totals   attendance.Totals
	HasPrev  bool
	PrevKey  attendance.MonthKey
	HasNext  bool
	NextKey  attendance.MonthKey
	Warning  bool // the book failed to load and an empty one is shown instead
}

// QueryCourseCalendar builds the month view for one course: a day-state grid,
// the month's counts and the cumulative semester totals, plus prev/next
// navigation keys restricted to months the semester window touches.
//
// Default month resolution clamps today into the window, so opening the page
// before the semester starts shows the first month and opening it after the
// end shows the last. An explicitly requested month outside the window is
// rejected rather than clamped, so a stale link fails loudly instead of
// silently showing a different month.
//
// A book that fails to load degrades to an empty one with Warning set; the
// page still renders but must not pretend the blank grid is saved data.
func QueryCourseCalendar(ctx context.Context, query CourseCalendarQuery, deps CourseCalendarDeps, now time.Time) (CourseCalendarResult, error) {
	crs, err := deps.CourseStore.GetByCode(ctx, course.NormalizeCode(query.CourseCode))
	if err != nil {
		return CourseCalendarResult{}, ErrUnknownCourse
	}

	sem, err := deps.SemesterStore.GetActive(ctx)
	if err != nil {
		return CourseCalendarResult{}, fmt.Errorf("load active semester: %w", err)
	}
	window := sem.Window()

	key := window.ClampMonth(now)
	if query.Year != 0 || query.Month != 0 {
		if query.Month < 1 || query.Month > 12 {
			return CourseCalendarResult{}, attendance.ErrBadMonthKey
		}
		requested := attendance.MonthKey{Year: query.Year, Month: time.Month(query.Month)}
		if !window.AllowsMonth(requested) {
			return CourseCalendarResult{}, ErrMonthOutsideSemester
		}
		key = requested
	}

	result := CourseCalendarResult{
		Course:   crs,
		Semester: sem,
		Key:      key,
	}

	book, err := deps.BookStore.Load(ctx, query.AccountID)
	if err != nil {
		slog.Warn("attendance_book_load_failed",
			"account_id", query.AccountID,
			"error", err.Error())
		book = attendance.NewBook()
		result.Warning = true
	}

	// Monday-first grid: shift Go's Sunday-first weekday numbering.
	result.Offset = (int(key.Date(1).Weekday()) + 6) % 7
	days := key.Days()
	result.Cells = make([]DayCell, 0, days)
	for day := 1; day <= days; day++ {
		state := attendance.Classify(book, crs.Code, key.Date(day), window, now)
		result.Cells = append(result.Cells, DayCell{
			Day:        day,
			State:      state,
			Toggleable: state.Toggleable(),
		})
	}

	result.Month = attendance.MonthlyStats(book, crs.Code, key, window, now)
	result.Totals = attendance.CumulativeStats(book, crs.Code, window, now, deps.LeaveEvery)

	if prev := key.Prev(); window.AllowsMonth(prev) {
		result.HasPrev = true
		result.PrevKey = prev
	}
	if next := key.Next(); window.AllowsMonth(next) {
		result.HasNext = true
		result.NextKey = next
	}

	return result, nil
}
