package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrBadMonthKey = errors.New("month key must be formatted YYYY-MM")
)

// MonthKey identifies one calendar month. It is used as the bucket key for
// day-marking sets; the canonical "YYYY-MM" string form exists only at the
// serialization boundary.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the key for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses a canonical "YYYY-MM" string (zero-padded, month 01-12).
// PRE: s is untrusted input
// POST: Returns the key, or ErrBadMonthKey if s is not canonical
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, ErrBadMonthKey
	}
	return MonthKeyOf(t), nil
}

// String returns the canonical zero-padded "YYYY-MM" form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MarshalText encodes the key in its canonical form. Lexical order of the
// encoded form matches chronological order, so JSON documents keyed by
// MonthKey stay readable.
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a canonical "YYYY-MM" key.
func (k *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsZero reports whether the key is the zero value.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

// Next returns the key of the following calendar month.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// Prev returns the key of the preceding calendar month.
func (k MonthKey) Prev() MonthKey {
	if k.Month == time.January {
		return MonthKey{Year: k.Year - 1, Month: time.December}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// Before reports whether k is chronologically before other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// After reports whether k is chronologically after other.
func (k MonthKey) After(other MonthKey) bool {
	return other.Before(k)
}

// Days returns the number of days in the month.
// POST: Returns 28..31, respecting leap years
func (k MonthKey) Days() int {
	// Day zero of the next month is the last day of this one.
	return time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Date returns the UTC midnight time for the given day of this month.
// PRE: day is within 1..Days()
func (k MonthKey) Date(day int) time.Time {
	return time.Date(k.Year, k.Month, day, 0, 0, 0, 0, time.UTC)
}
