package projections

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rollbook/internal/domain/attendance"
	"rollbook/internal/domain/course"
	"rollbook/internal/domain/semester"
)

// DashboardCourseStore defines the course store interface needed by the dashboard projection.
type DashboardCourseStore interface {
	List(ctx context.Context) ([]course.Course, error)
}

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	AccountID string
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	BookStore     CalendarBookStore
	CourseStore   DashboardCourseStore
	SemesterStore CalendarSemesterStore
	LeaveEvery    int
}

// CourseSummary is one course row on the dashboard: the course plus the
// account's cumulative counts for it. Percent duplicates Totals.Percent so
// the JSON summary endpoint can ship it without method calls.
type CourseSummary struct {
	Course  course.Course     `json:"course"`
	Totals  attendance.Totals `json:"totals"`
	Percent int               `json:"percent"`
}

// DashboardResult carries the output of the dashboard projection.
// Semester.Notes is raw markdown; rendering happens at the template layer.
type DashboardResult struct {
	Semester semester.Semester `json:"semester"`
	Courses  []CourseSummary   `json:"courses"`
	Warning  bool              `json:"warning"` // some data failed to load and is shown empty
}

// QueryGetDashboard aggregates the signed-in account's standing across every
// course: cumulative conducted/absent/off counts, attendance percentage and
// the remaining leave budget, under the active semester's header.
//
// The active semester is the one thing the page cannot invent, so its load
// failure is an error. Courses and the book degrade to empty with Warning
// set; a half-rendered dashboard beats a dead one.
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps, now time.Time) (DashboardResult, error) {
	sem, err := deps.SemesterStore.GetActive(ctx)
	if err != nil {
		return DashboardResult{}, fmt.Errorf("load active semester: %w", err)
	}
	window := sem.Window()

	result := DashboardResult{Semester: sem}

	courses, err := deps.CourseStore.List(ctx)
	if err != nil {
		slog.Warn("dashboard_course_list_failed", "error", err.Error())
		result.Warning = true
		return result, nil
	}

	book, err := deps.BookStore.Load(ctx, query.AccountID)
	if err != nil {
		slog.Warn("attendance_book_load_failed",
			"account_id", query.AccountID,
			"error", err.Error())
		book = attendance.NewBook()
		result.Warning = true
	}

	result.Courses = make([]CourseSummary, 0, len(courses))
	for _, crs := range courses {
		totals := attendance.CumulativeStats(book, crs.Code, window, now, deps.LeaveEvery)
		result.Courses = append(result.Courses, CourseSummary{
			Course:  crs,
			Totals:  totals,
			Percent: totals.Percent(),
		})
	}

	return result, nil
}
