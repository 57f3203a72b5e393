package runway

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidExamDate is returned when the exam is not in the future or the
// daily budget is not positive. No plan is produced.
var ErrInvalidExamDate = errors.New("invalid exam date")

// Intensity is the study load of a single day.
type Intensity string

const (
	IntensityRest   Intensity = "rest"
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// GapCheckItems returns the size of the evening gap-check quiz for a day of
// the given intensity.
func (i Intensity) GapCheckItems() int {
	switch i {
	case IntensityHigh:
		return 5
	case IntensityMedium:
		return 3
	default:
		return 0
	}
}

func (i Intensity) blockLabel() string {
	switch i {
	case IntensityHigh:
		return "Deep dive"
	case IntensityMedium:
		return "Practice"
	default:
		return "Light review"
	}
}

// TimeBlock is one study block of a day.
type TimeBlock struct {
	Label         string  `json:"label"`
	Focus         string  `json:"focus"` // topic ID, empty for mixed review
	DurationHours float64 `json:"duration_hours"`
}

// DayPlan is one day of the runway.
type DayPlan struct {
	DayNumber     int         `json:"day_number"`
	Date          time.Time   `json:"date"`
	Intensity     Intensity   `json:"intensity"`
	FocusTopics   []string    `json:"focus_topics"`
	TimeBlocks    []TimeBlock `json:"time_blocks"`
	GapCheckItems int         `json:"gap_check_items"`
	// OverflowHours is the topic floor time the daily budget could not hold,
	// either past the budget or past the per-topic ceiling.
	OverflowHours float64 `json:"overflow_hours,omitempty"`
}

// Hours returns the sum of the day's block durations.
func (d DayPlan) Hours() float64 {
	total := 0.0
	for _, b := range d.TimeBlocks {
		total += b.DurationHours
	}
	return total
}

// Plan is a bounded-horizon study plan ending on an exam date. Plans are
// regenerated wholesale; they are never patched.
type Plan struct {
	StudentID      string    `json:"student_id"`
	ExamID         string    `json:"exam_id"`
	ExamDate       time.Time `json:"exam_date"`
	HoursPerDay    float64   `json:"hours_per_day"`
	DaysUntilExam  int       `json:"days_until_exam"`
	Days           []DayPlan `json:"days"`
	PriorityTopics []string  `json:"priority_topics"`
	TotalHours     float64   `json:"total_hours"`
	// Overflow is set when at least one day could not fit its topic floor
	// into the daily budget under the per-topic ceiling.
	Overflow    bool      `json:"overflow"`
	GeneratedAt time.Time `json:"generated_at"`
}

// MilestoneDays are the countdown points at which a runway reminder is sent.
var MilestoneDays = []int{7, 3, 1}

// Milestone reports whether the plan's countdown sits on a milestone.
func (p *Plan) Milestone() (int, bool) {
	for _, d := range MilestoneDays {
		if p.DaysUntilExam == d {
			return d, true
		}
	}
	return 0, false
}

// Request describes the exam a plan is built for.
type Request struct {
	StudentID   string
	ExamID      string
	ExamDate    time.Time
	HoursPerDay float64
}

// Config holds the planner tunables.
type Config struct {
	// HorizonDays caps the number of planned days.
	HorizonDays int `mapstructure:"horizon_days"`
	// MaxTopicShare is the largest fraction of a day one topic may take.
	MaxTopicShare float64 `mapstructure:"max_topic_share"`
	// MinBlockHours is the smallest block a focus topic receives.
	MinBlockHours float64 `mapstructure:"min_block_hours"`
	// PeakDays is the number of high-intensity days before the taper.
	PeakDays int `mapstructure:"peak_days"`
	// TaperDays is the number of low-intensity days right before the exam.
	TaperDays int `mapstructure:"taper_days"`
	// PriorityTopics caps the plan's reported priority list.
	PriorityTopics int `mapstructure:"priority_topics"`
}

// DefaultConfig returns the 7-day runway defaults.
func DefaultConfig() Config {
	return Config{
		HorizonDays:    7,
		MaxTopicShare:  0.5,
		MinBlockHours:  0.5,
		PeakDays:       2,
		TaperDays:      1,
		PriorityTopics: 5,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("runway horizon_days %d must be >= 1", c.HorizonDays)
	}
	if c.MaxTopicShare <= 0 || c.MaxTopicShare > 1 {
		return fmt.Errorf("runway max_topic_share %.2f outside (0,1]", c.MaxTopicShare)
	}
	if c.MinBlockHours <= 0 {
		return fmt.Errorf("runway min_block_hours %.2f must be > 0", c.MinBlockHours)
	}
	if c.PeakDays < 0 || c.TaperDays < 0 {
		return fmt.Errorf("runway peak_days/taper_days must be >= 0")
	}
	if c.PriorityTopics < 1 {
		return fmt.Errorf("runway priority_topics %d must be >= 1", c.PriorityTopics)
	}
	return nil
}
