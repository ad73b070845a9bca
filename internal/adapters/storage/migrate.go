package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// migration is one numbered, transactional schema step. Migrations are
// append-only: released versions are never edited, new changes get a new
// number.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{1, "baseline schema", migrateBaseline},
	{2, "activation tokens", migrateActivationTokens},
	{3, "outbox dedup key", migrateOutboxDedupKey},
	{4, "google sign-in", migrateGoogleSignIn},
}

// LatestSchemaVersion returns the version a fully migrated database carries.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the database's current schema version.
// PRE: db is a valid database connection
// POST: Returns 0 for a database with no schema_version table
func SchemaVersion(db *sql.DB) (int, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema_version: %w", err)
	}
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// MigrateDB brings the database schema up to the latest version, applying
// each pending migration in its own transaction. Before touching an already
// populated file-backed database it writes a sibling .bak copy so a failed
// upgrade can be rolled back by hand.
// PRE: db is a valid connection opened on dbPath
// POST: SchemaVersion(db) == LatestSchemaVersion(), or an error and no
// partially applied migration
func MigrateDB(db *sql.DB, dbPath string) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	latest := LatestSchemaVersion()
	if current > latest {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", current, latest)
	}
	if current == latest {
		return nil
	}

	if current > 0 {
		if err := backupBeforeMigration(dbPath, current); err != nil {
			return err
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
		slog.Info("schema_migration_applied", "version", m.version, "name", m.name)
	}
	return nil
}

// backupBeforeMigration copies the database file aside before an upgrade.
// In-memory and not-yet-created databases are skipped.
func backupBeforeMigration(dbPath string, fromVersion int) error {
	if dbPath == "" || dbPath == ":memory:" {
		return nil
	}
	data, err := os.ReadFile(dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database for backup: %w", err)
	}
	backup := fmt.Sprintf("%s.v%d.bak", dbPath, fromVersion)
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return fmt.Errorf("failed to write migration backup: %w", err)
	}
	slog.Info("schema_migration_backup", "path", backup)
	return nil
}

// migrateBaseline creates the original tables: accounts, the course list,
// the semester row and the per-account attendance books, plus the outbox.
func migrateBaseline(tx *sql.Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_change_required INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS course (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS semester (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS attendance_book (
		account_id TEXT PRIMARY KEY,
		absences TEXT NOT NULL DEFAULT '{}',
		off_days TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	return nil
}

// migrateActivationTokens adds the single-use activation token table for
// email-verified self registration.
func migrateActivationTokens(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS activation_token (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id)
	)`)
	return err
}

// migrateOutboxDedupKey adds at-most-once enqueue support: entries carrying
// a non-empty dedup key are unique on it.
func migrateOutboxDedupKey(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE outbox ADD COLUMN dedup_key TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_outbox_dedup_key ON outbox(dedup_key) WHERE dedup_key != ''`)
	return err
}

// migrateGoogleSignIn adds the Google identity link to accounts.
func migrateGoogleSignIn(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE account ADD COLUMN google_id TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_account_google_id ON account(google_id) WHERE google_id != ''`)
	return err
}
