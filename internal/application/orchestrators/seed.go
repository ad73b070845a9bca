package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"rollbook/internal/domain/course"
	"rollbook/internal/domain/semester"
)

// SemesterStoreForSeed defines the store interface needed by SeedSemester.
type SemesterStoreForSeed interface {
	GetActive(ctx context.Context) (semester.Semester, error)
	Save(ctx context.Context, s semester.Semester) error
}

// CourseStoreForSeed defines the store interface needed by SeedCourses.
type CourseStoreForSeed interface {
	List(ctx context.Context) ([]course.Course, error)
	Save(ctx context.Context, c course.Course) error
}

// SeedSemesterInput carries the configured default semester.
type SeedSemesterInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// SeedSemesterDeps holds dependencies for SeedSemester.
type SeedSemesterDeps struct {
	SemesterStore SemesterStoreForSeed
	GenerateID    func() string
}

// ExecuteSeedSemester creates the configured semester if none is active yet.
// An existing active semester is left untouched, including its dates.
// PRE: input dates are a valid inclusive range
// POST: GetActive succeeds
func ExecuteSeedSemester(ctx context.Context, input SeedSemesterInput, deps SeedSemesterDeps) error {
	if _, err := deps.SemesterStore.GetActive(ctx); err == nil {
		return nil // Already seeded
	}

	s := semester.Semester{
		ID:        deps.GenerateID(),
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	if err := deps.SemesterStore.Save(ctx, s); err != nil {
		return err
	}

	slog.Info("seed_event", "event", "semester_seeded", "name", s.Name,
		"start", s.StartDate.Format("2006-01-02"), "end", s.EndDate.Format("2006-01-02"))
	return nil
}

// SeedCoursesDeps holds dependencies for SeedCourses.
type SeedCoursesDeps struct {
	CourseStore CourseStoreForSeed
	GenerateID  func() string
}

// ExecuteSeedCourses creates a default course list if no courses exist.
func ExecuteSeedCourses(ctx context.Context, deps SeedCoursesDeps) error {
	existing, err := deps.CourseStore.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}

	defaults := []course.Course{
		{ID: deps.GenerateID(), Code: "cs301", Name: "Compiler Construction", SortOrder: 1},
		{ID: deps.GenerateID(), Code: "cs302", Name: "Operating Systems", SortOrder: 2},
		{ID: deps.GenerateID(), Code: "cs303", Name: "Database Systems", SortOrder: 3},
		{ID: deps.GenerateID(), Code: "cs304", Name: "Computer Networks", SortOrder: 4},
		{ID: deps.GenerateID(), Code: "ma201", Name: "Linear Algebra", SortOrder: 5},
	}
	for _, c := range defaults {
		if err := deps.CourseStore.Save(ctx, c); err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "courses_seeded", "count", len(defaults))
	return nil
}
