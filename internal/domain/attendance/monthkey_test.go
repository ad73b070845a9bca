package attendance_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rollbook/internal/domain/attendance"
)

// TestParseMonthKey tests parsing of canonical month keys.
func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    attendance.MonthKey
		wantErr bool
	}{
		{
			name:  "valid key",
			input: "2025-07",
			want:  attendance.MonthKey{Year: 2025, Month: time.July},
		},
		{
			name:  "december",
			input: "2025-12",
			want:  attendance.MonthKey{Year: 2025, Month: time.December},
		},
		{
			name:    "missing zero padding",
			input:   "2025-7",
			wantErr: true,
		},
		{
			name:    "month out of range",
			input:   "2025-13",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "swapped parts",
			input:   "07-2025",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := attendance.ParseMonthKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonthKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMonthKey(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestMonthKey_String tests the canonical zero-padded form.
func TestMonthKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  attendance.MonthKey
		want string
	}{
		{"single digit month", attendance.MonthKey{Year: 2025, Month: time.July}, "2025-07"},
		{"double digit month", attendance.MonthKey{Year: 2025, Month: time.November}, "2025-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("MonthKey.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestMonthKey_Navigation tests Next/Prev across year boundaries.
func TestMonthKey_Navigation(t *testing.T) {
	dec := attendance.MonthKey{Year: 2025, Month: time.December}
	jan := attendance.MonthKey{Year: 2026, Month: time.January}

	if got := dec.Next(); got != jan {
		t.Errorf("Next() across year = %v, want %v", got, jan)
	}
	if got := jan.Prev(); got != dec {
		t.Errorf("Prev() across year = %v, want %v", got, dec)
	}

	jul := attendance.MonthKey{Year: 2025, Month: time.July}
	aug := attendance.MonthKey{Year: 2025, Month: time.August}
	if got := jul.Next(); got != aug {
		t.Errorf("Next() = %v, want %v", got, aug)
	}
	if !jul.Before(aug) || aug.Before(jul) {
		t.Errorf("Before() ordering wrong for %v / %v", jul, aug)
	}
	if !aug.After(jul) {
		t.Errorf("After() ordering wrong for %v / %v", aug, jul)
	}
}

// TestMonthKey_Days tests month lengths including leap years.
func TestMonthKey_Days(t *testing.T) {
	tests := []struct {
		name string
		key  attendance.MonthKey
		want int
	}{
		{"july", attendance.MonthKey{Year: 2025, Month: time.July}, 31},
		{"november", attendance.MonthKey{Year: 2025, Month: time.November}, 30},
		{"february non-leap", attendance.MonthKey{Year: 2025, Month: time.February}, 28},
		{"february leap", attendance.MonthKey{Year: 2024, Month: time.February}, 29},
		{"december", attendance.MonthKey{Year: 2025, Month: time.December}, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Days(); got != tt.want {
				t.Errorf("MonthKey.Days() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestMonthKey_JSONBoundary verifies that sheets keyed by MonthKey encode
// with the canonical string key and decode back to the same marks.
func TestMonthKey_JSONBoundary(t *testing.T) {
	book := attendance.NewBook()
	book.Toggle("cs301", attendance.KindAbsent, attendance.MonthKey{Year: 2025, Month: time.July}, 28)

	data, err := json.Marshal(book)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `"2025-07":[28]`; !strings.Contains(string(data), want) {
		t.Errorf("encoded book %s does not contain %s", data, want)
	}

	var decoded attendance.Book
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	key := attendance.MonthKey{Year: 2025, Month: time.July}
	if !decoded.Marked("cs301", attendance.KindAbsent, key, 28) {
		t.Errorf("decoded book lost the mark for %v day 28", key)
	}
}
