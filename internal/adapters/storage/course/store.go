package course

import (
	"context"

	domain "rollbook/internal/domain/course"
)

// Store persists the global course list. There is no Delete: attendance
// books key their sheets by course code, and removing a course would orphan
// every mark recorded under it.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Course, error)
	GetByCode(ctx context.Context, code string) (domain.Course, error)
	List(ctx context.Context) ([]domain.Course, error)
	Save(ctx context.Context, value domain.Course) error
}
