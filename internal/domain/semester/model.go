package semester

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rollbook/internal/domain/attendance"
)

// Domain errors
var (
	ErrEmptyName      = errors.New("semester name cannot be empty")
	ErrEmptyStartDate = errors.New("start date cannot be zero")
	ErrEmptyEndDate   = errors.New("end date cannot be zero")
	ErrInvalidDates   = errors.New("start date must be on or before end date")
)

// MaxNotesLength bounds the free-form notes shown on the dashboard.
const MaxNotesLength = 5000

// Semester is the fixed date range attendance is tracked over. Exactly one
// semester is active per deployment at a time.
type Semester struct {
	ID        string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Notes     string // optional, markdown rendered on the dashboard
}

// Validate checks if the Semester has valid data.
// PRE: Semester struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Semester) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.StartDate.IsZero() {
		return ErrEmptyStartDate
	}
	if s.EndDate.IsZero() {
		return ErrEmptyEndDate
	}
	if s.StartDate.After(s.EndDate) {
		return ErrInvalidDates
	}
	if len(s.Notes) > MaxNotesLength {
		return fmt.Errorf("semester notes cannot exceed %d characters", MaxNotesLength)
	}
	return nil
}

// Window returns the inclusive date range as the accounting engine's window
// type.
// PRE: Semester has been validated
// INVARIANT: Semester fields are not mutated
func (s *Semester) Window() attendance.Window {
	return attendance.Window{Start: s.StartDate, End: s.EndDate}
}

// Contains returns true if the given date falls within this semester.
func (s *Semester) Contains(date time.Time) bool {
	return s.Window().Contains(date)
}
