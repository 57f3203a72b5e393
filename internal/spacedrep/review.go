package spacedrep

import "time"

// Schedule holds the review state of one quiz item for one student.
type Schedule struct {
	StudentID       string    `json:"student_id"`
	ItemID          string    `json:"item_id"`
	IntervalDays    int       `json:"interval_days"`
	RepetitionCount int       `json:"repetition_count"`
	Lapses          int       `json:"lapses"`
	DueAt           time.Time `json:"due_at"`
	LastReviewAt    time.Time `json:"last_review_at"`
}

// Clone returns a copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	c := *s
	return &c
}

// IsDue returns true if the item is due for review (at or past the due date).
func (s *Schedule) IsDue(now time.Time) bool {
	return !now.Before(s.DueAt)
}

// OverdueDays returns how many days past due the item is. Returns 0 if not yet due.
func (s *Schedule) OverdueDays(now time.Time) float64 {
	if now.Before(s.DueAt) {
		return 0
	}
	return now.Sub(s.DueAt).Hours() / 24.0
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (s *Schedule) DaysUntilReview(now time.Time) int {
	if s.IsDue(now) {
		return 0
	}
	return int(s.DueAt.Sub(now).Hours()/24.0) + 1
}

// ReviewStatus describes an item's review status for display.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status returns the review status. An item more than half an interval past
// its due date is overdue.
func (s *Schedule) Status(now time.Time) ReviewStatus {
	if !s.IsDue(now) {
		return ReviewNotDue
	}
	grace := time.Duration(float64(s.IntervalDays) * 0.5 * float64(24*time.Hour))
	if now.After(s.DueAt.Add(grace)) {
		return ReviewOverdue
	}
	return ReviewDue
}
