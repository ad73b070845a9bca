package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"rollbook/internal/adapters/http/middleware"
	"rollbook/internal/application/orchestrators"
	"rollbook/internal/domain/account"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

const templatesDir = "internal/adapters/http/templates"

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	role := ""
	email := ""
	name := ""
	if ok {
		role = sess.Role
		email = sess.Email
		name = sess.Name
	}

	funcMap := template.FuncMap{
		"currentEmail": func() string { return email },
		"currentName":  func() string { return name },
		"isLoggedIn":   func() bool { return role != "" },
		"isAdmin":      func() bool { return role == account.RoleAdmin },
		"csrfToken":    func() string { return csrf.Token(r) },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		// blanks pads the calendar grid before day 1 (Monday-first offset).
		"blanks": func(n int) []int {
			s := make([]int, n)
			for i := range s {
				s[i] = i
			}
			return s
		},
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	pagePath := filepath.Join(templatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// requireSession returns the session for API handlers, or writes 401.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireAdmin returns the session for admin API handlers, or writes 401/403.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if sess.Role != account.RoleAdmin {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "admin")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// handleRoot redirects / to the dashboard (signed in) or the login page.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		// If already logged in, redirect to dashboard
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"CSRFToken":      csrf.Token(r),
			"GoogleClientID": cfg.GoogleClientID,
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.LoginInput{
			Email:    r.FormValue("Email"),
			Password: r.FormValue("Password"),
		}

		deps := orchestrators.LoginDeps{
			AccountStore: stores.AccountStore,
		}

		result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
		if err != nil {
			renderTemplate(w, r, "login.html", map[string]any{
				"CSRFToken":      csrf.Token(r),
				"GoogleClientID": cfg.GoogleClientID,
				"Error":          err.Error(),
			})
			return
		}

		// Create session
		token, err := sessions.Create(result.AccountID, result.Email, result.Name, result.Role, result.PasswordChangeRequired)
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		middleware.SetSessionCookie(w, token)
		if result.PasswordChangeRequired {
			http.Redirect(w, r, "/change-password", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Delete session
	cookie, err := r.Cookie("rollbook_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleRegister handles GET (form) and POST (request activation link) for /register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "register.html", map[string]any{
			"CSRFToken": csrf.Token(r),
		})
		return
	}

	if r.Method == "POST" {
		isHTML := isHTMLRequest(r)
		input := orchestrators.RegisterAccountInput{}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form submission", http.StatusBadRequest)
				return
			}
			input.Email = r.FormValue("Email")
			input.Name = r.FormValue("Name")
		} else {
			if err := strictDecode(r, &input); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}
		}

		deps := orchestrators.RegisterAccountDeps{
			AccountStore: stores.AccountStore,
			OutboxStore:  stores.OutboxStore,
			BaseURL:      cfg.BaseURL,
			GenerateID:   generateID,
			Now:          timeNow,
		}

		_, err := orchestrators.ExecuteRegisterAccount(r.Context(), input, deps)
		if err != nil {
			if isHTML {
				renderTemplate(w, r, "register.html", map[string]any{
					"CSRFToken": csrf.Token(r),
					"Email":     input.Email,
					"Name":      input.Name,
					"Error":     err.Error(),
				})
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if isHTML {
			renderTemplate(w, r, "register.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Email":     input.Email,
				"Sent":      true,
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleActivate handles GET (set-password form) and POST (activate) for /activate
func handleActivate(w http.ResponseWriter, r *http.Request) {
	deps := orchestrators.ActivateAccountDeps{
		AccountStore: stores.AccountStore,
		Now:          timeNow,
	}

	if r.Method == "GET" {
		token := r.URL.Query().Get("token")
		data := map[string]any{
			"CSRFToken": csrf.Token(r),
			"Token":     token,
			"TokenOK":   false,
		}
		if token == "" {
			data["Error"] = "activation link is missing its token"
		} else if err := orchestrators.CheckActivationToken(r.Context(), token, deps); err != nil {
			data["Error"] = err.Error()
		} else {
			data["TokenOK"] = true
		}
		renderTemplate(w, r, "activate.html", data)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.ActivateAccountInput{
			Token:    r.FormValue("Token"),
			Password: r.FormValue("Password"),
		}

		if r.FormValue("Password") != r.FormValue("ConfirmPassword") {
			renderTemplate(w, r, "activate.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Token":     input.Token,
				"TokenOK":   true,
				"Error":     "Passwords do not match",
			})
			return
		}

		result, err := orchestrators.ExecuteActivateAccount(r.Context(), input, deps)
		if err != nil {
			// A dead token gets no second form; a weak password keeps it.
			tokenOK := !errors.Is(err, account.ErrTokenInvalid) &&
				!errors.Is(err, account.ErrTokenExpired) &&
				!errors.Is(err, orchestrators.ErrTokenUsed) &&
				!errors.Is(err, account.ErrAlreadyActivated)
			renderTemplate(w, r, "activate.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Token":     input.Token,
				"TokenOK":   tokenOK,
				"Error":     err.Error(),
			})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Name, result.Role, result.PasswordChangeRequired)
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleGoogleLogin handles POST /auth/google with the credential issued by
// Google Identity Services. The login page posts it as JSON from the GIS
// callback; the form branch accepts GIS redirect-mode posts too.
func handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if cfg.GoogleVerifier == nil {
		http.Error(w, "google sign-in is not configured", http.StatusNotFound)
		return
	}

	var credential string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		credential = r.FormValue("credential")
	} else {
		var body struct {
			Credential string `json:"Credential"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		credential = body.Credential
	}
	if credential == "" {
		http.Error(w, "credential is required", http.StatusBadRequest)
		return
	}

	deps := orchestrators.LoginGoogleDeps{
		AccountStore: stores.AccountStore,
		Verifier:     cfg.GoogleVerifier,
		GenerateID:   generateID,
		Now:          timeNow,
	}

	result, err := orchestrators.ExecuteLoginGoogle(r.Context(), orchestrators.LoginGoogleInput{IDToken: credential}, deps)
	if err != nil {
		if isHTMLRequest(r) {
			renderTemplate(w, r, "login.html", map[string]any{
				"CSRFToken":      csrf.Token(r),
				"GoogleClientID": cfg.GoogleClientID,
				"Error":          err.Error(),
			})
			return
		}
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Name, result.Role, result.PasswordChangeRequired)
	if err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	middleware.SetSessionCookie(w, token)

	if isHTMLRequest(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"Redirect": "/dashboard"})
}

// handleChangePassword handles GET (form) and POST (update) for /change-password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if r.Method == "GET" {
		renderTemplate(w, r, "change_password.html", map[string]any{
			"CSRFToken": csrf.Token(r),
			"Forced":    session.PasswordChangeRequired,
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Form error", http.StatusBadRequest)
			return
		}

		input := orchestrators.ChangePasswordInput{
			AccountID:       session.AccountID,
			CurrentPassword: r.FormValue("CurrentPassword"),
			NewPassword:     r.FormValue("NewPassword"),
		}

		// Validate confirm matches
		if r.FormValue("NewPassword") != r.FormValue("ConfirmPassword") {
			renderTemplate(w, r, "change_password.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Forced":    session.PasswordChangeRequired,
				"Error":     "New passwords do not match",
			})
			return
		}

		deps := orchestrators.ChangePasswordDeps{
			AccountStore: stores.AccountStore,
		}

		if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
			renderTemplate(w, r, "change_password.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Forced":    session.PasswordChangeRequired,
				"Error":     err.Error(),
			})
			return
		}

		// Update session to clear the flag
		cookie, err := r.Cookie("rollbook_session")
		if err == nil {
			session.PasswordChangeRequired = false
			sessions.Update(cookie.Value, session)
		}

		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleHealth handles GET /health for load balancer checks.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
