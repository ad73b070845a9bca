package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rollbook/internal/domain/attendance"
	"rollbook/internal/domain/course"
	"rollbook/internal/domain/outbox"
	"rollbook/internal/domain/semester"
)

// BookStoreForToggle defines the book store interface needed by ToggleDay.
type BookStoreForToggle interface {
	Load(ctx context.Context, accountID string) (*attendance.Book, error)
	Save(ctx context.Context, accountID string, b *attendance.Book) error
}

// CourseStoreForToggle defines the course store interface needed by ToggleDay.
type CourseStoreForToggle interface {
	GetByCode(ctx context.Context, code string) (course.Course, error)
}

// SemesterStoreForToggle defines the semester store interface needed by ToggleDay.
type SemesterStoreForToggle interface {
	GetActive(ctx context.Context) (semester.Semester, error)
}

// OutboxStoreForToggle defines the outbox store interface needed by ToggleDay.
type OutboxStoreForToggle interface {
	Save(ctx context.Context, e outbox.Entry) error
	GetByDedupKey(ctx context.Context, key string) (outbox.Entry, error)
}

// ToggleDayInput carries input for the toggle orchestrator.
type ToggleDayInput struct {
	AccountID  string
	Email      string // recipient for the low-attendance alert
	CourseCode string
	Kind       string // "absent" or "off"
	Year       int
	Month      int // 1-12
	Day        int
}

// ToggleDayDeps holds dependencies for ToggleDay.
type ToggleDayDeps struct {
	BookStore     BookStoreForToggle
	CourseStore   CourseStoreForToggle
	SemesterStore SemesterStoreForToggle
	OutboxStore   OutboxStoreForToggle // optional: nil disables low-attendance alerts
	LeaveEvery    int                  // 0 uses attendance.DefaultLeaveEvery
	GenerateID    func() string
	Now           func() time.Time
}

// ToggleDayResult carries the day's new state and the recomputed statistics
// the page refreshes from.
type ToggleDayResult struct {
	State  attendance.DayState
	Marked bool
	Month  attendance.MonthStats
	Totals attendance.Totals
}

var (
	ErrBadKind          = errors.New("kind must be absent or off")
	ErrNoSuchDay        = errors.New("no such calendar day")
	ErrUnknownCourse    = errors.New("unknown course")
	ErrDayNotToggleable = errors.New("day cannot be marked")
)

// ExecuteToggleDay flips one attendance mark for the signed-in account and
// recomputes the statistics from scratch. The whole book is saved back in one
// write; a concurrent editor of the same account can lose marks, which the
// single-session-per-account assumption accepts.
// PRE: AccountID is non-empty; the date names a real calendar day
// POST: The mark is flipped and persisted, or nothing is saved at all
// INVARIANT: Weekends, future days and days outside the semester are rejected
func ExecuteToggleDay(ctx context.Context, input ToggleDayInput, deps ToggleDayDeps) (ToggleDayResult, error) {
	if input.AccountID == "" {
		return ToggleDayResult{}, errors.New("account ID is required")
	}
	kind := attendance.Kind(input.Kind)
	if !kind.Valid() {
		return ToggleDayResult{}, ErrBadKind
	}
	date, err := dateOf(input.Year, input.Month, input.Day)
	if err != nil {
		return ToggleDayResult{}, err
	}

	crs, err := deps.CourseStore.GetByCode(ctx, course.NormalizeCode(input.CourseCode))
	if err != nil {
		return ToggleDayResult{}, ErrUnknownCourse
	}

	sem, err := deps.SemesterStore.GetActive(ctx)
	if err != nil {
		return ToggleDayResult{}, fmt.Errorf("load active semester: %w", err)
	}
	window := sem.Window()
	today := deps.Now()

	// A failed load must abort the edit: saving a fresh book on top of an
	// unreadable row would wipe the account's real marks.
	book, err := deps.BookStore.Load(ctx, input.AccountID)
	if err != nil {
		return ToggleDayResult{}, fmt.Errorf("load attendance book: %w", err)
	}

	if state := attendance.Classify(book, crs.Code, date, window, today); !state.Toggleable() {
		return ToggleDayResult{}, fmt.Errorf("%w: %s is %s", ErrDayNotToggleable, date.Format("2006-01-02"), state)
	}

	key := attendance.MonthKeyOf(date)
	marked := book.Toggle(crs.Code, kind, key, date.Day())

	if err := deps.BookStore.Save(ctx, input.AccountID, book); err != nil {
		return ToggleDayResult{}, fmt.Errorf("save attendance book: %w", err)
	}

	result := ToggleDayResult{
		State:  attendance.Classify(book, crs.Code, date, window, today),
		Marked: marked,
		Month:  attendance.MonthlyStats(book, crs.Code, key, window, today),
		Totals: attendance.CumulativeStats(book, crs.Code, window, today, deps.LeaveEvery),
	}

	slog.Info("attendance_event", "event", "day_toggled",
		"account_id", input.AccountID, "course", crs.Code, "kind", string(kind),
		"date", date.Format("2006-01-02"), "marked", marked, "state", string(result.State))

	if marked && kind == attendance.KindAbsent && result.Totals.LeavesLeft == 0 {
		enqueueLowAttendanceAlert(ctx, input, deps, crs, result.Totals)
	}

	return result, nil
}

// enqueueLowAttendanceAlert queues an alert mail when the leave budget is
// used up. The dedup key makes the alert at-most-once per account and course;
// a failure here never fails the toggle.
func enqueueLowAttendanceAlert(ctx context.Context, input ToggleDayInput, deps ToggleDayDeps, crs course.Course, totals attendance.Totals) {
	if deps.OutboxStore == nil || input.Email == "" {
		return
	}
	dedupKey := fmt.Sprintf("low-attendance:%s:%s", input.AccountID, crs.Code)
	if _, err := deps.OutboxStore.GetByDedupKey(ctx, dedupKey); err == nil {
		return // already alerted
	}

	payload, err := json.Marshal(EmailPayload{
		To:      input.Email,
		Subject: fmt.Sprintf("Leave budget used up for %s", crs.Name),
		HTML: fmt.Sprintf(
			"<p>You have recorded %d absences in <strong>%s</strong> against an allowed-leave budget of %d. Another absence will push your attendance below the permitted level.</p>",
			totals.Absent, crs.Name, totals.LeaveBudget),
	})
	if err != nil {
		slog.Error("attendance_alert_encode_failed", "account_id", input.AccountID, "error", err)
		return
	}

	entry := outbox.Entry{
		ID:         deps.GenerateID(),
		ActionType: outbox.ActionTypeEmail,
		Payload:    string(payload),
		DedupKey:   dedupKey,
		Status:     outbox.StatusPending,
		CreatedAt:  deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		slog.Error("attendance_alert_invalid", "account_id", input.AccountID, "error", err)
		return
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		slog.Error("attendance_alert_enqueue_failed", "account_id", input.AccountID, "error", err)
		return
	}
	slog.Info("attendance_event", "event", "low_attendance_alert_queued",
		"account_id", input.AccountID, "course", crs.Code, "absent", totals.Absent, "budget", totals.LeaveBudget)
}

// dateOf validates that year, month and day name a real calendar day and
// returns it at UTC midnight.
func dateOf(year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, ErrNoSuchDay
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, ErrNoSuchDay
	}
	return d, nil
}
