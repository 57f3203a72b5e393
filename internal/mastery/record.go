package mastery

import "time"

// Status classifies a topic record for snapshot display.
type Status string

const (
	StatusNew      Status = "new"
	StatusLearning Status = "learning"
	StatusWeak     Status = "weak"
	StatusStrong   Status = "strong"
)

// Record holds everything known about one student's proficiency on one
// topic. It is created lazily on the first attempt and never deleted.
type Record struct {
	StudentID     string    `json:"student_id"`
	TopicID       string    `json:"topic_id"`
	Score         float64   `json:"score"`
	Confidence    float64   `json:"confidence"`
	Attempts      int       `json:"attempts"`
	Correct       int       `json:"correct"`
	Streak        int       `json:"streak"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
	NextReviewAt  time.Time `json:"next_review_at"`
}

// NewRecord returns the zero-knowledge record for a (student, topic) pair.
func NewRecord(studentID, topicID string) *Record {
	return &Record{StudentID: studentID, TopicID: topicID}
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Accuracy returns the raw correct/attempts ratio.
func (r *Record) Accuracy() float64 {
	if r.Attempts == 0 {
		return 0.0
	}
	return float64(r.Correct) / float64(r.Attempts)
}

// IsWeak reports whether the topic is weak enough, with enough evidence, to
// be targeted for practice.
func (r *Record) IsWeak(threshold, minConfidence float64) bool {
	return r.Score < threshold && r.Confidence >= minConfidence
}

// ScheduleReview sets the next review time. A review is never scheduled
// before the attempt that produced it.
func (r *Record) ScheduleReview(due time.Time) {
	if due.Before(r.LastAttemptAt) {
		due = r.LastAttemptAt
	}
	r.NextReviewAt = due
}

// Classify returns the record's display status.
func (r *Record) Classify(th Thresholds) Status {
	switch {
	case r.Attempts == 0:
		return StatusNew
	case r.Confidence < th.MinConfidence:
		return StatusLearning
	case r.Score < th.Weak:
		return StatusWeak
	case r.Score >= th.Strong:
		return StatusStrong
	default:
		return StatusLearning
	}
}
