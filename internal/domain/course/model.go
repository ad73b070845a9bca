package course

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrEmptyCode = errors.New("course code cannot be empty")
	ErrEmptyName = errors.New("course name cannot be empty")
	ErrBadCode   = errors.New("course code may only contain lowercase letters, digits and hyphens")
)

// Max length constants.
const (
	MaxCodeLength = 40
	MaxNameLength = 200
)

// Course represents one class attendance is tracked for (e.g. cs301,
// Compiler Construction). The set of courses is global to the deployment:
// admins add and rename courses; nothing ever deletes one, so attendance
// books never point at a vanished course.
type Course struct {
	ID        string
	Code      string // stable lowercase identifier, used as the book key
	Name      string
	SortOrder int // display position on the dashboard
}

// Validate checks if the Course has valid data.
// PRE: Course struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCode
	}
	if len(c.Code) > MaxCodeLength {
		return fmt.Errorf("course code cannot exceed %d characters", MaxCodeLength)
	}
	for _, r := range c.Code {
		if !isCodeRune(r) {
			return ErrBadCode
		}
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("course name cannot exceed %d characters", MaxNameLength)
	}
	return nil
}

func isCodeRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-'
}

// NormalizeCode lowercases and trims a user-entered course code so lookups
// against book keys are stable.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
