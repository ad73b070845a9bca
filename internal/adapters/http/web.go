package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"rollbook/internal/adapters/http/middleware"
	"rollbook/internal/adapters/http/perf"
	accountStore "rollbook/internal/adapters/storage/account"
	bookStore "rollbook/internal/adapters/storage/book"
	courseStore "rollbook/internal/adapters/storage/course"
	outboxStore "rollbook/internal/adapters/storage/outbox"
	semesterStore "rollbook/internal/adapters/storage/semester"
	"rollbook/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore  accountStore.Store
	CourseStore   courseStore.Store
	SemesterStore semesterStore.Store
	BookStore     bookStore.Store
	OutboxStore   outboxStore.Store
}

// Config holds request-independent settings the handlers need.
type Config struct {
	// BaseURL is the absolute origin activation links are built against.
	BaseURL string
	// LeaveEvery is how many conducted classes accrue one permitted leave.
	// Zero falls back to the engine default.
	LeaveEvery int
	// GoogleClientID is rendered into the login page for the Google
	// Identity Services button. Empty hides the button.
	GoogleClientID string
	// GoogleVerifier checks posted Google credentials. Nil disables
	// /auth/google entirely.
	GoogleVerifier orchestrators.GoogleVerifier
}

// loadCSRFKey reads the CSRF secret from ROLLBOOK_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("ROLLBOOK_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("ROLLBOOK_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("ROLLBOOK_ENV") == "production" {
		log.Fatal("ROLLBOOK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set ROLLBOOK_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global handler configuration (set by SetConfig)
var cfg Config

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// SetConfig sets the handler configuration for the application.
// Call it before NewMux; the zero value works for local development.
func SetConfig(c Config) {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	cfg = c
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("ROLLBOOK_ENV") == "production"
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}
