package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
)

// Type identifies what a notification announces.
type Type string

const (
	TypeDailyQuiz    Type = "daily_quiz"
	TypeRefresher    Type = "refresher"
	TypeExamRunway   Type = "exam_runway"
	TypeGapCheck     Type = "gap_check"
	TypeIntervention Type = "intervention"
)

// Record is a notification ready for external delivery. Only Read changes
// after creation.
type Record struct {
	ID        string         `json:"id"`
	StudentID string         `json:"student_id"`
	Type      Type           `json:"type"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	Read      bool           `json:"read"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Config holds the generator tunables.
type Config struct {
	// RefresherPerDay caps refresher notifications per student per day.
	RefresherPerDay int `mapstructure:"refresher_per_day"`
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() Config {
	return Config{RefresherPerDay: 2}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.RefresherPerDay < 1 {
		return fmt.Errorf("notify refresher_per_day %d must be >= 1", c.RefresherPerDay)
	}
	return nil
}

// Generator turns engine outcomes into notification records. It never
// delivers anything and keeps no per-student state.
type Generator struct {
	cfg   Config
	newID func() string
}

// NewGenerator creates a generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:   cfg,
		newID: uuid.NewString,
	}
}

func (g *Generator) record(studentID string, typ Type, msg string, now time.Time, payload map[string]any) *Record {
	return &Record{
		ID:        g.newID(),
		StudentID: studentID,
		Type:      typ,
		Message:   msg,
		CreatedAt: now,
		Payload:   payload,
	}
}

// QuizReady announces a daily quiz. Empty quizzes produce nothing.
func (g *Generator) QuizReady(q *quiz.Quiz, now time.Time) *Record {
	if q == nil || len(q.Items) == 0 {
		return nil
	}
	msg := fmt.Sprintf("Your daily quiz is ready: %d question%s", len(q.Items), plural(len(q.Items)))
	due := 0
	for _, s := range q.Items {
		if s.Category == quiz.CategoryDue {
			due++
		}
	}
	if due > 0 {
		msg += fmt.Sprintf(", %d due for review", due)
	}
	return g.record(q.StudentID, TypeDailyQuiz, msg+".", now, map[string]any{
		"date":     q.Date,
		"item_ids": q.ItemIDs(),
		"short":    q.Short,
	})
}

// RefresherDue suggests revisiting a weak topic. sent holds the times of the
// student's earlier refreshers; a call beyond the per-day budget returns nil.
func (g *Generator) RefresherDue(studentID, topicID, topicName string, sent []time.Time, now time.Time) *Record {
	if !g.allowRefresher(sent, now) {
		return nil
	}
	if topicName == "" {
		topicName = topicID
	}
	msg := fmt.Sprintf("Time for a quick refresher on %s.", topicName)
	return g.record(studentID, TypeRefresher, msg, now, map[string]any{"topic_id": topicID})
}

// RunwayMilestone announces a countdown milestone. It returns nil unless
// the plan's days-until-exam is a milestone.
func (g *Generator) RunwayMilestone(p *runway.Plan, now time.Time) *Record {
	if p == nil {
		return nil
	}
	days, ok := p.Milestone()
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("%d day%s until %s.", days, plural(days), p.ExamID)
	if len(p.PriorityTopics) > 0 {
		msg += " Focus on " + strings.Join(p.PriorityTopics, ", ") + "."
	}
	if p.Overflow {
		msg += " Your plan needs more hours per day than you set."
	}
	return g.record(p.StudentID, TypeExamRunway, msg, now, map[string]any{
		"exam_id":         p.ExamID,
		"days_until_exam": days,
		"overflow":        p.Overflow,
	})
}

// GapCheckReady announces the gap check of a runway day. Empty checks
// produce nothing.
func (g *Generator) GapCheckReady(p *runway.Plan, day int, q *quiz.Quiz, now time.Time) *Record {
	if p == nil || q == nil || len(q.Items) == 0 {
		return nil
	}
	msg := fmt.Sprintf("Day %d gap check for %s: %d question%s on %s.",
		day, p.ExamID, len(q.Items), plural(len(q.Items)), strings.Join(q.Topics(), ", "))
	return g.record(p.StudentID, TypeGapCheck, msg, now, map[string]any{
		"exam_id":    p.ExamID,
		"day_number": day,
		"item_ids":   q.ItemIDs(),
	})
}

// InterventionRaised offers the event's suggested action to the student.
// conceptCheck lists the item IDs of the suggested check, if any.
func (g *Generator) InterventionRaised(ev *intervention.Event, conceptCheck []string) *Record {
	if ev == nil {
		return nil
	}
	payload := map[string]any{
		"event_id":   ev.ID,
		"session_id": ev.SessionID,
	}
	if ev.Topic != "" {
		payload["topic_id"] = ev.Topic
	}
	if len(conceptCheck) > 0 {
		payload["item_ids"] = conceptCheck
	}
	msg := ev.Reason + ". " + ev.SuggestedAction + "?"
	return g.record(ev.StudentID, TypeIntervention, msg, ev.Timestamp, payload)
}

// allowRefresher replays earlier sends through a token bucket that holds
// RefresherPerDay tokens and refills them over a day.
func (g *Generator) allowRefresher(sent []time.Time, now time.Time) bool {
	every := rate.Every(24 * time.Hour / time.Duration(g.cfg.RefresherPerDay))
	lim := rate.NewLimiter(every, g.cfg.RefresherPerDay)

	history := append([]time.Time(nil), sent...)
	sort.Slice(history, func(i, j int) bool { return history[i].Before(history[j]) })
	for _, t := range history {
		if t.After(now) {
			break
		}
		lim.AllowN(t, 1)
	}
	return lim.AllowN(now, 1)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
