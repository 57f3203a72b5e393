package mastery

import (
	"fmt"

	"github.com/openta/adaptive/internal/bank"
)

// DefaultLearningRate is the step size of the score moving average.
const DefaultLearningRate = 0.3

// Config holds the tracker tunables.
type Config struct {
	// LearningRate scales every score update (0 < rate <= 1).
	LearningRate float64 `mapstructure:"learning_rate"`
	// StrongThreshold is the score at or above which a topic is reported strong.
	StrongThreshold float64 `mapstructure:"strong_threshold"`
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		LearningRate:    DefaultLearningRate,
		StrongThreshold: 0.8,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("mastery learning_rate %.3f outside (0,1]", c.LearningRate)
	}
	if c.StrongThreshold < 0 || c.StrongThreshold > 1 {
		return fmt.Errorf("mastery strong_threshold %.3f outside [0,1]", c.StrongThreshold)
	}
	return nil
}

// Tracker applies quiz-attempt outcomes to mastery records. It is stateless;
// persistence and replay protection are the caller's responsibility.
type Tracker struct {
	cfg Config
}

// NewTracker creates a tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Apply returns the record that results from applying a to rec. A nil rec
// starts from the zero-knowledge record. rec itself is never modified.
func (t *Tracker) Apply(rec *Record, a Attempt, item bank.Item) (*Record, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if item.ID != a.ItemID {
		return nil, fmt.Errorf("%w: attempt for item %q applied with item %q", ErrInvalidAttempt, a.ItemID, item.ID)
	}
	if item.TopicID == "" {
		return nil, fmt.Errorf("%w: item %q has no topic", ErrInvalidAttempt, item.ID)
	}

	var next *Record
	if rec == nil {
		next = NewRecord(a.StudentID, item.TopicID)
	} else {
		if rec.StudentID != a.StudentID || rec.TopicID != item.TopicID {
			return nil, fmt.Errorf("%w: record %s/%s does not match attempt %s/%s",
				ErrInvalidAttempt, rec.StudentID, rec.TopicID, a.StudentID, item.TopicID)
		}
		next = rec.Clone()
	}

	weight := DifficultyWeight(item.Difficulty, a.Correct)
	next.Score = clamp(next.Score+t.cfg.LearningRate*(a.Outcome()-next.Score)*weight, 0, 1)

	next.Attempts++
	if a.Correct {
		next.Correct++
		next.Streak++
	} else {
		next.Streak = 0
	}
	next.Confidence = confidenceFor(next.Attempts)

	if a.Timestamp.After(next.LastAttemptAt) {
		next.LastAttemptAt = a.Timestamp
	}
	if next.NextReviewAt.Before(next.LastAttemptAt) {
		next.NextReviewAt = next.LastAttemptAt
	}
	return next, nil
}

// DifficultyWeight scales an update by item difficulty. Correct answers on
// hard items weigh 0.5+d/2; incorrect answers mirror that, 0.5+(1-d)/2, so
// missing an easy item costs more than missing a hard one.
func DifficultyWeight(difficulty float64, correct bool) float64 {
	d := clamp(difficulty, 0, 1)
	w := 0.5 + d/2
	if !correct {
		w = 1.5 - w
	}
	return w
}
