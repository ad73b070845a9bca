package attendance

import "sort"

// Kind selects which marking sheet a toggle edits.
type Kind string

const (
	KindAbsent Kind = "absent"
	KindOff    Kind = "off"
)

// Valid reports whether k is a known marking kind.
func (k Kind) Valid() bool {
	return k == KindAbsent || k == KindOff
}

// Sheet maps a month to the ascending day-of-month numbers marked in it
// for one course. Days absent from every set are implicitly unmarked.
type Sheet map[MonthKey][]int

// Book is the whole attendance document for one account: per-course sheets
// of days marked absent and days marked off. Missing course entries mean no
// activity; the document only grows — courses and months are never removed.
//
// A day may be a member of both sheets at once. The mutation layer does not
// enforce exclusion; Classify resolves the overlap by giving the off sheet
// precedence. That is a documented policy, not an invariant of the data.
type Book struct {
	Absences map[string]Sheet `json:"absences"`
	OffDays  map[string]Sheet `json:"off_days"`
}

// NewBook returns an empty book with both sheet maps allocated.
func NewBook() *Book {
	return &Book{
		Absences: make(map[string]Sheet),
		OffDays:  make(map[string]Sheet),
	}
}

// Marked reports whether the given day carries the given mark.
// PRE: key and day describe a real calendar day
// POST: Returns false for unknown courses or kinds, never an error
// INVARIANT: Book is not mutated
func (b *Book) Marked(courseID string, kind Kind, key MonthKey, day int) bool {
	sheet := b.sheets(kind)[courseID]
	if sheet == nil {
		return false
	}
	days := sheet[key]
	i := sort.SearchInts(days, day)
	return i < len(days) && days[i] == day
}

// Toggle flips the given mark on the given day and reports whether the day
// is marked afterwards. The edit is a pure sorted-set operation: marking
// inserts the day in ascending position, unmarking removes it. Toggling one
// kind never touches the other sheet, and toggling twice with identical
// arguments restores the original membership.
// PRE: kind is valid, key and day describe a real calendar day
// POST: Returns true if the day is now marked, false if now unmarked
func (b *Book) Toggle(courseID string, kind Kind, key MonthKey, day int) bool {
	sheets := b.ensureSheets(kind)
	sheet := sheets[courseID]
	if sheet == nil {
		sheet = make(Sheet)
		sheets[courseID] = sheet
	}
	days := sheet[key]
	i := sort.SearchInts(days, day)
	if i < len(days) && days[i] == day {
		sheet[key] = append(days[:i], days[i+1:]...)
		return false
	}
	days = append(days, 0)
	copy(days[i+1:], days[i:])
	days[i] = day
	sheet[key] = days
	return true
}

// sheets returns the map backing the given kind, which may be nil on a book
// decoded from an empty document.
func (b *Book) sheets(kind Kind) map[string]Sheet {
	if kind == KindOff {
		return b.OffDays
	}
	return b.Absences
}

// ensureSheets returns the map backing the given kind, allocating it first
// if the book was decoded from an empty document.
func (b *Book) ensureSheets(kind Kind) map[string]Sheet {
	if kind == KindOff {
		if b.OffDays == nil {
			b.OffDays = make(map[string]Sheet)
		}
		return b.OffDays
	}
	if b.Absences == nil {
		b.Absences = make(map[string]Sheet)
	}
	return b.Absences
}
