package attendance_test

import (
	"testing"
	"time"

	"rollbook/internal/domain/attendance"
)

// semesterWindow returns the window used across the engine tests:
// Sunday 2025-07-27 through Saturday 2025-11-22, inclusive.
func semesterWindow() attendance.Window {
	return attendance.Window{
		Start: time.Date(2025, 7, 27, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
	}
}

// TestWindow_Contains tests inclusive boundary handling.
func TestWindow_Contains(t *testing.T) {
	w := semesterWindow()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"day before start", time.Date(2025, 7, 26, 0, 0, 0, 0, time.UTC), false},
		{"first day", time.Date(2025, 7, 27, 0, 0, 0, 0, time.UTC), true},
		{"mid semester", time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC), true},
		{"last day", time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC), true},
		{"day after end", time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC), false},
		{"late clock on last day", time.Date(2025, 11, 22, 23, 30, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.date); got != tt.want {
				t.Errorf("Window.Contains(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

// TestWindow_AllowsMonth tests month overlap checks used to gate calendar
// navigation.
func TestWindow_AllowsMonth(t *testing.T) {
	w := semesterWindow()

	tests := []struct {
		name string
		key  attendance.MonthKey
		want bool
	}{
		{"month before window", attendance.MonthKey{Year: 2025, Month: time.June}, false},
		{"partial first month", attendance.MonthKey{Year: 2025, Month: time.July}, true},
		{"full month inside", attendance.MonthKey{Year: 2025, Month: time.August}, true},
		{"partial last month", attendance.MonthKey{Year: 2025, Month: time.November}, true},
		{"month after window", attendance.MonthKey{Year: 2025, Month: time.December}, false},
		{"next year", attendance.MonthKey{Year: 2026, Month: time.August}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.AllowsMonth(tt.key); got != tt.want {
				t.Errorf("Window.AllowsMonth(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// TestWindow_ClampMonth tests the initial-month pick for a calendar view.
func TestWindow_ClampMonth(t *testing.T) {
	w := semesterWindow()

	tests := []struct {
		name string
		date time.Time
		want attendance.MonthKey
	}{
		{"before window", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), attendance.MonthKey{Year: 2025, Month: time.July}},
		{"inside window", time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC), attendance.MonthKey{Year: 2025, Month: time.September}},
		{"after window", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), attendance.MonthKey{Year: 2025, Month: time.November}},
		{"first day", time.Date(2025, 7, 27, 0, 0, 0, 0, time.UTC), attendance.MonthKey{Year: 2025, Month: time.July}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.ClampMonth(tt.date); got != tt.want {
				t.Errorf("Window.ClampMonth(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}
