package semester

import (
	"context"

	domain "rollbook/internal/domain/semester"
)

// Store persists semesters. The application tracks attendance against a
// single active semester; Save activates the saved row.
type Store interface {
	GetActive(ctx context.Context) (domain.Semester, error)
	Save(ctx context.Context, value domain.Semester) error
}
