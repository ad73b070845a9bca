package course

import (
	"context"
	"database/sql"
	"fmt"

	"rollbook/internal/adapters/storage"
	domain "rollbook/internal/domain/course"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new course store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Course by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, sort_order FROM course WHERE id = ?`, id)
	return scanCourse(row.Scan)
}

// GetByCode retrieves a Course by its stable code.
// PRE: code is normalized (lowercase, trimmed)
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByCode(ctx context.Context, code string) (domain.Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, sort_order FROM course WHERE code = ?`, code)
	return scanCourse(row.Scan)
}

// List returns all courses in display order.
// PRE: none
// POST: Returns all courses sorted by sort_order, then code
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, sort_order FROM course ORDER BY sort_order, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Course
	for rows.Next() {
		c, err := scanCourse(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if out == nil {
		out = []domain.Course{}
	}
	return out, rows.Err()
}

// Save upserts a course, keyed by ID with a unique code.
// PRE: value has been validated
// POST: Course is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, value domain.Course) error {
	if err := value.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course (id, code, name, sort_order)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   code=excluded.code, name=excluded.name, sort_order=excluded.sort_order`,
		value.ID, value.Code, value.Name, value.SortOrder)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	return nil
}

func scanCourse(scan func(dest ...any) error) (domain.Course, error) {
	var c domain.Course
	if err := scan(&c.ID, &c.Code, &c.Name, &c.SortOrder); err != nil {
		if err == sql.ErrNoRows {
			return domain.Course{}, fmt.Errorf("course not found: %w", err)
		}
		return domain.Course{}, err
	}
	return c, nil
}
