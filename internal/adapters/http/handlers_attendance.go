package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"rollbook/internal/adapters/http/middleware"
	"rollbook/internal/application/orchestrators"
	"rollbook/internal/application/projections"
	"rollbook/internal/domain/attendance"
)

// handleDashboard handles GET /dashboard — the signed-in account's standing
// across every course under the active semester's header.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	query := projections.GetDashboardQuery{AccountID: sess.AccountID}
	deps := projections.GetDashboardDeps{
		BookStore:     stores.BookStore,
		CourseStore:   stores.CourseStore,
		SemesterStore: stores.SemesterStore,
		LeaveEvery:    cfg.LeaveEvery,
	}

	result, err := projections.QueryGetDashboard(r.Context(), query, deps, timeNow())
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, "dashboard.html", result)
}

// handleCalendar handles GET /calendar?course=&year=&month= — the month grid
// for one course. Year and month omitted show the default month for today.
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	courseCode := r.URL.Query().Get("course")
	if courseCode == "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	var year, month int
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "year must be a number", http.StatusBadRequest)
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "month must be a number", http.StatusBadRequest)
			return
		}
		month = n
	}

	query := projections.CourseCalendarQuery{
		AccountID:  sess.AccountID,
		CourseCode: courseCode,
		Year:       year,
		Month:      month,
	}
	deps := projections.CourseCalendarDeps{
		BookStore:     stores.BookStore,
		CourseStore:   stores.CourseStore,
		SemesterStore: stores.SemesterStore,
		LeaveEvery:    cfg.LeaveEvery,
	}

	result, err := projections.QueryCourseCalendar(r.Context(), query, deps, timeNow())
	if err != nil {
		switch {
		case errors.Is(err, projections.ErrUnknownCourse):
			http.Error(w, "unknown course", http.StatusNotFound)
		case errors.Is(err, projections.ErrMonthOutsideSemester),
			errors.Is(err, attendance.ErrBadMonthKey):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			internalError(w, err)
		}
		return
	}

	renderTemplate(w, r, "calendar.html", result)
}

// toggleDayRequest is the JSON body for POST /api/attendance/toggle.
type toggleDayRequest struct {
	Course string `json:"course"`
	Kind   string `json:"kind"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
}

// toggleDayResponse carries the new day state plus fresh statistics so the
// calendar page can refresh in place without a reload. Percent duplicates
// Totals.Percent, which JSON cannot ship as a method.
type toggleDayResponse struct {
	State   attendance.DayState   `json:"state"`
	Marked  bool                  `json:"marked"`
	Month   attendance.MonthStats `json:"month"`
	Totals  attendance.Totals     `json:"totals"`
	Percent int                   `json:"percent"`
}

// handleToggleDay handles POST /api/attendance/toggle
func handleToggleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var body toggleDayRequest
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.ToggleDayInput{
		AccountID:  sess.AccountID,
		Email:      sess.Email,
		CourseCode: body.Course,
		Kind:       body.Kind,
		Year:       body.Year,
		Month:      body.Month,
		Day:        body.Day,
	}
	deps := orchestrators.ToggleDayDeps{
		BookStore:     stores.BookStore,
		CourseStore:   stores.CourseStore,
		SemesterStore: stores.SemesterStore,
		OutboxStore:   stores.OutboxStore,
		LeaveEvery:    cfg.LeaveEvery,
		GenerateID:    generateID,
		Now:           timeNow,
	}

	result, err := orchestrators.ExecuteToggleDay(r.Context(), input, deps)
	if err != nil {
		switch {
		case errors.Is(err, orchestrators.ErrUnknownCourse):
			http.Error(w, "unknown course", http.StatusNotFound)
		case errors.Is(err, orchestrators.ErrBadKind),
			errors.Is(err, orchestrators.ErrNoSuchDay),
			errors.Is(err, orchestrators.ErrDayNotToggleable):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			internalError(w, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toggleDayResponse{
		State:   result.State,
		Marked:  result.Marked,
		Month:   result.Month,
		Totals:  result.Totals,
		Percent: result.Totals.Percent(),
	})
}

// handleAttendanceSummary handles GET /api/attendance/summary — the dashboard
// projection as JSON.
func handleAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	query := projections.GetDashboardQuery{AccountID: sess.AccountID}
	deps := projections.GetDashboardDeps{
		BookStore:     stores.BookStore,
		CourseStore:   stores.CourseStore,
		SemesterStore: stores.SemesterStore,
		LeaveEvery:    cfg.LeaveEvery,
	}

	result, err := projections.QueryGetDashboard(r.Context(), query, deps, timeNow())
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
