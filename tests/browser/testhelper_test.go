package browser_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	web "rollbook/internal/adapters/http"
	"rollbook/internal/adapters/http/middleware"
	"rollbook/internal/adapters/http/perf"
	"rollbook/internal/adapters/storage"
	accountStore "rollbook/internal/adapters/storage/account"
	bookStore "rollbook/internal/adapters/storage/book"
	courseStore "rollbook/internal/adapters/storage/course"
	outboxStore "rollbook/internal/adapters/storage/outbox"
	semesterStore "rollbook/internal/adapters/storage/semester"
	"rollbook/internal/application/orchestrators"
	semesterDomain "rollbook/internal/domain/semester"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
	AdminID string
	tmpDir  string
}

// newTestApp creates a fully wired app with a temp SQLite DB and starts an HTTP server.
// The seeded semester brackets the real current date so the current and previous
// month are both inside the teaching period.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	// Create temp directory for the database
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	// Run migrations
	if err := storage.MigrateDB(db, dbPath); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	// Create stores
	acctStore := accountStore.NewSQLiteStore(db)
	crsStore := courseStore.NewSQLiteStore(db)
	semStore := semesterStore.NewSQLiteStore(db)
	stores := &web.Stores{
		AccountStore:  acctStore,
		CourseStore:   crsStore,
		SemesterStore: semStore,
		BookStore:     bookStore.NewSQLiteStore(db),
		OutboxStore:   outboxStore.NewSQLiteStore(db),
	}

	// Seed admin (without PasswordChangeRequired so login goes straight to dashboard)
	ctx := context.Background()
	adminID, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
		Email:                  "admin@test.com",
		Password:               "TestPass123!",
		Role:                   "admin",
		PasswordChangeRequired: false,
	}, orchestrators.CreateAccountDeps{
		AccountStore: acctStore,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	})
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	// Seed a semester spanning last month through two months out
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 3, -1)
	if err := semStore.Save(ctx, semesterDomain.Semester{
		ID:        uuid.NewString(),
		Name:      "Test Semester",
		StartDate: start,
		EndDate:   end,
	}); err != nil {
		t.Fatalf("failed to seed semester: %v", err)
	}

	// Seed the default course catalog
	crsDeps := orchestrators.SeedCoursesDeps{CourseStore: crsStore, GenerateID: uuid.NewString}
	if err := orchestrators.ExecuteSeedCourses(ctx, crsDeps); err != nil {
		t.Fatalf("failed to seed courses: %v", err)
	}

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	// Change to project root so relative template/static paths work
	projectRoot := findProjectRoot(t)
	origDir, _ := os.Getwd()
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("failed to chdir to project root: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })

	// Add test port to CSRF trusted origins before creating mux
	middleware.ExtraTrustedOrigins = append(middleware.ExtraTrustedOrigins,
		fmt.Sprintf("127.0.0.1:%d", port),
		fmt.Sprintf("localhost:%d", port),
	)

	// Activation links in queued emails must point at the test server
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	web.SetConfig(web.Config{BaseURL: baseURL})

	// Start HTTP server
	collector := perf.NewCollector(perf.DefaultRingSize)
	mux := web.NewMux("static", stores, collector)
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/login")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Start Playwright
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
		AdminID: adminID,
		tmpDir:  tmpDir,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login navigates to the login page and logs in as admin.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	_, err := page.Goto(a.BaseURL + "/login")
	if err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=Email]").Fill("admin@test.com"); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=Password]").Fill("TestPass123!"); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	// Wait for redirect to dashboard
	if err := page.WaitForURL(a.BaseURL+"/dashboard", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to dashboard: %v", err)
	}
}

// findProjectRoot walks up from the working directory to find the project root (contains go.mod).
func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (go.mod) from working directory")
		}
		dir = parent
	}
}

// --- Helper functions ---

// apiGet performs a GET request via page.Evaluate and returns parsed JSON.
func apiGet(t *testing.T, page playwright.Page, url string) interface{} {
	t.Helper()
	result, err := page.Evaluate(fmt.Sprintf(`async () => {
		const r = await fetch('%s');
		if (!r.ok) throw new Error('GET failed: ' + r.status);
		return r.json();
	}`, url))
	if err != nil {
		t.Fatalf("apiGet %s: %v", url, err)
	}
	return result
}

// apiPost performs a POST request via page.Evaluate and returns parsed JSON.
func apiPost(t *testing.T, page playwright.Page, url string, body map[string]interface{}) interface{} {
	t.Helper()
	bodyJSON, _ := json.Marshal(body)
	result, err := page.Evaluate(fmt.Sprintf(`async () => {
		const r = await fetch('%s', {
			method: 'POST',
			headers: {'Content-Type': 'application/json'},
			body: '%s'
		});
		if (!r.ok && r.status !== 201) throw new Error('POST failed: ' + r.status);
		return r.json();
	}`, url, string(bodyJSON)))
	if err != nil {
		t.Fatalf("apiPost %s: %v", url, err)
	}
	return result
}

// toInt converts a page.Evaluate result to int (handles float64 and int).
func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
