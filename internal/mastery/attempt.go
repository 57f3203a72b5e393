package mastery

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAttempt is returned for malformed attempt data. The attempt is
// not applied.
var ErrInvalidAttempt = errors.New("invalid attempt")

// Attempt is a write-once record of a student answering a quiz item.
type Attempt struct {
	StudentID           string    `json:"student_id"`
	ItemID              string    `json:"item_id"`
	SelectedIndex       int       `json:"selected_index"`
	Correct             bool      `json:"correct"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	Timestamp           time.Time `json:"timestamp"`
}

// Validate checks the attempt fields the engine depends on.
func (a Attempt) Validate() error {
	switch {
	case a.StudentID == "":
		return fmt.Errorf("%w: empty student ID", ErrInvalidAttempt)
	case a.ItemID == "":
		return fmt.Errorf("%w: empty item ID", ErrInvalidAttempt)
	case a.ResponseTimeSeconds < 0:
		return fmt.Errorf("%w: negative response time %.2f", ErrInvalidAttempt, a.ResponseTimeSeconds)
	case a.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidAttempt)
	}
	return nil
}

// Outcome returns 1 for a correct attempt and 0 otherwise.
func (a Attempt) Outcome() float64 {
	if a.Correct {
		return 1
	}
	return 0
}
