package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rollbook/internal/adapters/storage"
	"rollbook/internal/domain/attendance"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store using SQLite. The two sheet maps live in
// separate JSON columns so either can be inspected or repaired by hand.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance book store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load retrieves the Book for an account.
// PRE: accountID is non-empty
// POST: Returns an empty book when no row exists; an error only for a
// database failure or an undecodable document
func (s *SQLiteStore) Load(ctx context.Context, accountID string) (*attendance.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT absences, off_days FROM attendance_book WHERE account_id = ?`, accountID)

	var absences, offDays string
	err := row.Scan(&absences, &offDays)
	if err == sql.ErrNoRows {
		return attendance.NewBook(), nil
	}
	if err != nil {
		return nil, err
	}

	b := attendance.NewBook()
	if err := json.Unmarshal([]byte(absences), &b.Absences); err != nil {
		return nil, fmt.Errorf("decode absences for account %s: %w", accountID, err)
	}
	if err := json.Unmarshal([]byte(offDays), &b.OffDays); err != nil {
		return nil, fmt.Errorf("decode off days for account %s: %w", accountID, err)
	}
	return b, nil
}

// Save replaces the stored book for an account with b.
// PRE: accountID is non-empty, b is non-nil
// POST: The stored document equals b; any concurrent edit since the
// caller's Load is overwritten
func (s *SQLiteStore) Save(ctx context.Context, accountID string, b *attendance.Book) error {
	absences, err := json.Marshal(b.Absences)
	if err != nil {
		return fmt.Errorf("encode absences: %w", err)
	}
	offDays, err := json.Marshal(b.OffDays)
	if err != nil {
		return fmt.Errorf("encode off days: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attendance_book (account_id, absences, off_days, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   absences=excluded.absences, off_days=excluded.off_days,
		   updated_at=excluded.updated_at`,
		accountID, string(absences), string(offDays),
		time.Now().UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save attendance book: %w", err)
	}
	return nil
}
