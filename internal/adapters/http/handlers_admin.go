package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	courseDomain "rollbook/internal/domain/course"
	semesterDomain "rollbook/internal/domain/semester"
)

// handleAdminCoursesPage handles GET /admin/courses — the course list with an
// add/rename form posting to /api/courses.
func handleAdminCoursesPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	courses, err := stores.CourseStore.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "admin_courses.html", map[string]any{
		"Courses": courses,
	})
}

// handleCourses handles GET (list) and POST (add or rename) for /api/courses.
// There is no DELETE: attendance books key their sheets by course code and a
// removed course would orphan every mark recorded under it.
func handleCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		courses, err := stores.CourseStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if courses == nil {
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode(courses)
		return
	}

	if r.Method == "POST" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		isHTML := isHTMLRequest(r)

		var input struct {
			Code      string `json:"Code"`
			Name      string `json:"Name"`
			SortOrder int    `json:"SortOrder"`
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form submission", http.StatusBadRequest)
				return
			}
			input.Code = r.FormValue("Code")
			input.Name = r.FormValue("Name")
			if v := r.FormValue("SortOrder"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					http.Error(w, "SortOrder must be a number", http.StatusBadRequest)
					return
				}
				input.SortOrder = n
			}
		} else {
			if err := strictDecode(r, &input); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
		}

		code := courseDomain.NormalizeCode(input.Code)

		// Same code twice is a rename, not a duplicate.
		crs, err := stores.CourseStore.GetByCode(ctx, code)
		created := err != nil
		if created {
			crs = courseDomain.Course{ID: generateID(), Code: code}
		}
		crs.Name = input.Name
		crs.SortOrder = input.SortOrder

		if err := crs.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.CourseStore.Save(ctx, crs); err != nil {
			internalError(w, err)
			return
		}

		if isHTML {
			http.Redirect(w, r, "/admin/courses", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if created {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(crs)
		return
	}

	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// handleAdminSemesterPage handles GET /admin/semester — the active semester's
// dates and notes with an edit form posting to /api/semester.
func handleAdminSemesterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	data := map[string]any{"HasSemester": false}
	sem, err := stores.SemesterStore.GetActive(r.Context())
	if err == nil {
		data["HasSemester"] = true
		data["Semester"] = sem
		data["StartDate"] = sem.StartDate.Format("2006-01-02")
		data["EndDate"] = sem.EndDate.Format("2006-01-02")
	} else if !errors.Is(err, sql.ErrNoRows) {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "admin_semester.html", data)
}

// handleSemester handles GET (active semester), PUT (JSON update) and POST
// (form update) for /api/semester. Saving activates the saved row; dates stay
// editable mid-semester because enrolment dates shift.
func handleSemester(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		sem, err := stores.SemesterStore.GetActive(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "no active semester", http.StatusNotFound)
				return
			}
			internalError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sem)
		return
	}

	if r.Method == "PUT" || r.Method == "POST" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		isHTML := isHTMLRequest(r)

		var input struct {
			Name      string `json:"Name"`
			StartDate string `json:"StartDate"`
			EndDate   string `json:"EndDate"`
			Notes     string `json:"Notes"`
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form submission", http.StatusBadRequest)
				return
			}
			input.Name = r.FormValue("Name")
			input.StartDate = r.FormValue("StartDate")
			input.EndDate = r.FormValue("EndDate")
			input.Notes = r.FormValue("Notes")
		} else {
			if err := strictDecode(r, &input); err != nil {
				http.Error(w, "invalid JSON", http.StatusBadRequest)
				return
			}
		}

		startDate, err := time.Parse("2006-01-02", input.StartDate)
		if err != nil {
			http.Error(w, "StartDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		endDate, err := time.Parse("2006-01-02", input.EndDate)
		if err != nil {
			http.Error(w, "EndDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		// Editing keeps the active row's identity.
		sem, err := stores.SemesterStore.GetActive(ctx)
		if err != nil {
			sem = semesterDomain.Semester{ID: generateID()}
		}
		sem.Name = input.Name
		sem.StartDate = startDate
		sem.EndDate = endDate
		sem.Notes = input.Notes

		if err := sem.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.SemesterStore.Save(ctx, sem); err != nil {
			internalError(w, err)
			return
		}

		if isHTML {
			http.Redirect(w, r, "/admin/semester", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sem)
		return
	}

	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// handlePerf handles GET /api/perf?window=&top= — aggregated request and
// query timings from the in-memory ring buffer.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusServiceUnavailable)
		return
	}

	windowMinutes := 60
	if v := r.URL.Query().Get("window"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			windowMinutes = n
		}
	}
	topN := 10
	if v := r.URL.Query().Get("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topN = n
		}
	}

	snap := perfCollector.Snapshot(timeNow().Add(-time.Duration(windowMinutes)*time.Minute), topN)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
