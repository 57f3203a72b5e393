package quiz

import (
	"fmt"
	"time"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/spacedrep"
)

// Category represents the reason an item was included in the quiz.
type Category string

const (
	CategoryDue     Category = "due"
	CategoryWeak    Category = "weak"
	CategoryExplore Category = "explore"
)

// Slot is a single quiz position.
type Slot struct {
	Item     bank.Item `json:"item"`
	Category Category  `json:"category"`
}

// Quiz is the ordered list of items served to a student for one day.
type Quiz struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Items     []Slot `json:"items"`
	Requested int    `json:"requested"`
	// Short is set when the bank could not fill the requested count. The
	// quiz is still valid.
	Short bool `json:"short"`
}

// ItemIDs returns the item identifiers in quiz order.
func (q *Quiz) ItemIDs() []string {
	ids := make([]string, len(q.Items))
	for i, s := range q.Items {
		ids[i] = s.Item.ID
	}
	return ids
}

// Topics returns the distinct topic IDs covered, in first-seen order.
func (q *Quiz) Topics() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range q.Items {
		if !seen[s.Item.TopicID] {
			seen[s.Item.TopicID] = true
			out = append(out, s.Item.TopicID)
		}
	}
	return out
}

// Snapshot is a consistent read of one student's learning state.
type Snapshot struct {
	StudentID string
	Mastery   map[string]*mastery.Record    // by topic ID
	Schedules map[string]*spacedrep.Schedule // by item ID
}

// Config holds the selector tunables.
type Config struct {
	// WeakThreshold is the score below which a topic is targeted.
	WeakThreshold float64 `mapstructure:"weak_threshold"`
	// MinConfidence is the evidence required before a topic counts as weak.
	MinConfidence float64 `mapstructure:"min_confidence"`
	// DefaultCount is the quiz length used when the caller passes 0.
	DefaultCount int `mapstructure:"default_count"`
}

// DefaultConfig returns the default selector configuration. A minimum
// confidence of 0.75 corresponds to three recorded attempts.
func DefaultConfig() Config {
	return Config{
		WeakThreshold: 0.6,
		MinConfidence: 0.75,
		DefaultCount:  3,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.WeakThreshold < 0 || c.WeakThreshold > 1 {
		return fmt.Errorf("quiz weak_threshold %.2f outside [0,1]", c.WeakThreshold)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("quiz min_confidence %.2f outside [0,1]", c.MinConfidence)
	}
	if c.DefaultCount < 1 {
		return fmt.Errorf("quiz default_count %d must be >= 1", c.DefaultCount)
	}
	return nil
}

func dateKey(now time.Time) string {
	return now.Format("2006-01-02")
}
