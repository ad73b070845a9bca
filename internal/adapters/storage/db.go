package storage

import (
	"database/sql"
	"fmt"
)

// DSN builds the SQLite connection string for the given database path with
// the pragmas every connection needs: WAL journaling, a busy timeout so
// concurrent writers queue instead of failing, foreign key enforcement and
// relaxed synchronous mode suitable for WAL.
// PRE: dbPath is a file path or ":memory:"
// POST: Returns a modernc.org/sqlite DSN
func DSN(dbPath string) string {
	return dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}

// OpenDB opens the SQLite database with standard pragmas and pool settings.
// PRE: the modernc.org/sqlite driver is registered
// POST: Returns an open handle, or an error if the database is unreachable
func OpenDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pool sizing for WAL mode: many readers, writers serialized by SQLite.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}
