package semester

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rollbook/internal/adapters/storage"
	domain "rollbook/internal/domain/semester"
)

const dateFormat = "2006-01-02"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new semester store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetActive retrieves the single active semester.
// PRE: none
// POST: Returns the active semester or an error if none is configured
func (s *SQLiteStore) GetActive(ctx context.Context) (domain.Semester, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date, notes FROM semester WHERE active = 1`)

	var entity domain.Semester
	var startDate, endDate string
	err := row.Scan(&entity.ID, &entity.Name, &startDate, &endDate, &entity.Notes)
	if err == sql.ErrNoRows {
		return domain.Semester{}, fmt.Errorf("no active semester: %w", err)
	}
	if err != nil {
		return domain.Semester{}, err
	}

	entity.StartDate, err = time.Parse(dateFormat, startDate)
	if err != nil {
		return domain.Semester{}, fmt.Errorf("invalid start date in database: %w", err)
	}
	entity.EndDate, err = time.Parse(dateFormat, endDate)
	if err != nil {
		return domain.Semester{}, fmt.Errorf("invalid end date in database: %w", err)
	}
	return entity, nil
}

// Save upserts a semester and makes it the active one.
// PRE: value has been validated
// POST: value is persisted and is the only active semester
func (s *SQLiteStore) Save(ctx context.Context, value domain.Semester) error {
	if err := value.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE semester SET active = 0 WHERE id != ?`, value.ID); err != nil {
		return fmt.Errorf("deactivate semesters: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO semester (id, name, start_date, end_date, notes, active)
		 VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, start_date=excluded.start_date,
		   end_date=excluded.end_date, notes=excluded.notes, active=1`,
		value.ID,
		value.Name,
		value.StartDate.Format(dateFormat),
		value.EndDate.Format(dateFormat),
		value.Notes); err != nil {
		return fmt.Errorf("save semester: %w", err)
	}

	return tx.Commit()
}
