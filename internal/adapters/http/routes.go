package web

import "net/http"

// registerRoutes attaches all application routes to the mux. Static assets
// are mounted by NewMux under /static/.
func registerRoutes(mux *http.ServeMux) {
	// Root redirects to the dashboard or the login page.
	mux.HandleFunc("/", handleRoot)

	// Auth pages and endpoints
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/register", handleRegister)
	mux.HandleFunc("/activate", handleActivate)
	mux.HandleFunc("/auth/google", handleGoogleLogin)
	mux.HandleFunc("/change-password", handleChangePassword)

	// Student pages
	mux.HandleFunc("/dashboard", handleDashboard)
	mux.HandleFunc("/calendar", handleCalendar)

	// Admin pages
	mux.HandleFunc("/admin/courses", handleAdminCoursesPage)
	mux.HandleFunc("/admin/semester", handleAdminSemesterPage)

	// JSON APIs
	mux.HandleFunc("/api/attendance/toggle", handleToggleDay)
	mux.HandleFunc("/api/attendance/summary", handleAttendanceSummary)
	mux.HandleFunc("/api/courses", handleCourses)
	mux.HandleFunc("/api/semester", handleSemester)
	mux.HandleFunc("/api/perf", handlePerf)

	mux.HandleFunc("/health", handleHealth)
}
