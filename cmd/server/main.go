package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "rollbook/internal/adapters/email"
	"rollbook/internal/adapters/googleauth"
	web "rollbook/internal/adapters/http"
	"rollbook/internal/adapters/http/perf"
	"rollbook/internal/adapters/storage"
	accountStore "rollbook/internal/adapters/storage/account"
	bookStore "rollbook/internal/adapters/storage/book"
	courseStore "rollbook/internal/adapters/storage/course"
	outboxStorePkg "rollbook/internal/adapters/storage/outbox"
	semesterStore "rollbook/internal/adapters/storage/semester"
	"rollbook/internal/application/orchestrators"
	outboxDomain "rollbook/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Local development reads settings from .env; absence is fine.
	_ = godotenv.Load()

	dbPath := envOrDefault("ROLLBOOK_DB", "rollbook.db")
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.MigrateDB(db, dbPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	// Create store instances (using timed DB for query instrumentation)
	acctStore := accountStore.NewSQLiteStore(timedDB)
	crsStore := courseStore.NewSQLiteStore(timedDB)
	semStore := semesterStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:  acctStore,
		CourseStore:   crsStore,
		SemesterStore: semStore,
		BookStore:     bookStore.NewSQLiteStore(timedDB),
		OutboxStore:   outboxStorePkg.NewSQLiteStore(timedDB),
	}

	// Seed default admin account if no accounts exist
	adminEmail := envOrDefault("ROLLBOOK_ADMIN_EMAIL", "registrar@rollbook.app")
	adminPassword := envOrDefault("ROLLBOOK_ADMIN_PASSWORD", "Tuesday lecture")
	seedDeps := orchestrators.CreateAccountDeps{
		AccountStore: acctStore,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Seed the configured semester if none is active. The dates come from the
	// environment so each deployment pins its own teaching period.
	semInput, err := semesterFromEnv()
	if err != nil {
		log.Fatalf("invalid semester configuration: %v", err)
	}
	semDeps := orchestrators.SeedSemesterDeps{SemesterStore: semStore, GenerateID: uuid.NewString}
	if err := orchestrators.ExecuteSeedSemester(context.Background(), semInput, semDeps); err != nil {
		log.Fatalf("failed to seed semester: %v", err)
	}

	// Seed a default course list if the catalog is empty
	crsDeps := orchestrators.SeedCoursesDeps{CourseStore: crsStore, GenerateID: uuid.NewString}
	if err := orchestrators.ExecuteSeedCourses(context.Background(), crsDeps); err != nil {
		log.Fatalf("failed to seed courses: %v", err)
	}

	// Configure email sender
	var sender emailPkg.Sender
	resendKey := os.Getenv("ROLLBOOK_RESEND_KEY")
	emailFrom := envOrDefault("ROLLBOOK_RESEND_FROM", "Rollbook <noreply@rollbook.app>")
	if resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("ROLLBOOK_ENV") == "production" {
			log.Println("WARNING: ROLLBOOK_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set ROLLBOOK_RESEND_KEY for real delivery)")
		}
	}

	// Start outbox background worker so queued activation emails get delivered
	outboxStopCh := make(chan struct{})
	executors := map[string]orchestrators.ActionExecutor{
		outboxDomain.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender},
	}
	outboxProcessor := orchestrators.NewOutboxProcessor(stores.OutboxStore, executors)
	orchestrators.StartBackgroundWorker(outboxProcessor, 1*time.Minute, outboxStopCh)
	defer close(outboxStopCh)

	// Handler configuration: activation link origin, leave policy, Google sign-in
	webCfg := web.Config{
		BaseURL:    envOrDefault("ROLLBOOK_BASE_URL", "http://localhost:8080"),
		LeaveEvery: leaveEveryFromEnv(),
	}
	if clientID := os.Getenv("ROLLBOOK_GOOGLE_CLIENT_ID"); clientID != "" {
		webCfg.GoogleClientID = clientID
		webCfg.GoogleVerifier = googleauth.NewVerifier(clientID)
		log.Println("Google sign-in configured")
	}
	web.SetConfig(webCfg)

	// Create HTTP handler with middleware (pass collector for timing + dashboard)
	mux := web.NewMux("static", stores, collector)

	// Start server
	addr := envOrDefault("ROLLBOOK_ADDR", ":8080")
	log.Printf("Rollbook %s starting on %s (env=%s, schema=%d)", version, addr, envOrDefault("ROLLBOOK_ENV", "development"), storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// semesterFromEnv reads the semester window from the environment. The
// defaults describe the current teaching period so a bare checkout runs.
func semesterFromEnv() (orchestrators.SeedSemesterInput, error) {
	name := envOrDefault("ROLLBOOK_SEMESTER_NAME", "Semester 2 2025")
	startStr := envOrDefault("ROLLBOOK_SEMESTER_START", "2025-07-27")
	endStr := envOrDefault("ROLLBOOK_SEMESTER_END", "2025-11-22")

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return orchestrators.SeedSemesterInput{}, err
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return orchestrators.SeedSemesterInput{}, err
	}
	return orchestrators.SeedSemesterInput{Name: name, StartDate: start, EndDate: end}, nil
}

// leaveEveryFromEnv reads the classes-per-leave ratio. Zero means the
// attendance engine default applies.
func leaveEveryFromEnv() int {
	v := os.Getenv("ROLLBOOK_LEAVE_EVERY")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Printf("ignoring invalid ROLLBOOK_LEAVE_EVERY=%q", v)
		return 0
	}
	return n
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
