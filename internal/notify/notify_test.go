package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
)

var now = time.Date(2026, 10, 5, 7, 0, 0, 0, time.UTC)

func TestQuizReady(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	q := &quiz.Quiz{
		StudentID: "s1",
		Date:      "2026-10-05",
		Items: []quiz.Slot{
			{Item: bank.Item{ID: "q1"}, Category: quiz.CategoryDue},
			{Item: bank.Item{ID: "q2"}, Category: quiz.CategoryExplore},
		},
	}
	rec := g.QuizReady(q, now)
	if rec == nil {
		t.Fatal("QuizReady returned nil")
	}
	if rec.Type != TypeDailyQuiz || rec.StudentID != "s1" || rec.Read {
		t.Errorf("record = %+v", rec)
	}
	if want := "Your daily quiz is ready: 2 questions, 1 due for review."; rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
	if rec.ID == "" {
		t.Error("empty ID")
	}
	if g.QuizReady(&quiz.Quiz{StudentID: "s1"}, now) != nil {
		t.Error("empty quiz produced a notification")
	}
}

func TestRefresherDue_Throttled(t *testing.T) {
	g := NewGenerator(DefaultConfig())

	var sent []time.Time
	for i := 0; i < 5; i++ {
		at := now.Add(time.Duration(i) * time.Minute)
		if rec := g.RefresherDue("s1", "memory", "Memory", sent, at); rec != nil {
			sent = append(sent, rec.CreatedAt)
		}
	}
	if len(sent) != 2 {
		t.Errorf("refreshers = %d, want 2", len(sent))
	}
	if g.RefresherDue("s2", "memory", "", nil, now) == nil {
		t.Error("student without history throttled")
	}
	if g.RefresherDue("s1", "memory", "Memory", sent, now.Add(13*time.Hour)) == nil {
		t.Error("refresher still throttled after half a day")
	}
}

func TestRefresherDue_HistoryOrder(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	tests := []struct {
		name string
		sent []time.Time
		want bool
	}{
		{"no history", nil, true},
		{"one earlier", []time.Time{now.Add(-time.Hour)}, true},
		{"budget spent, unsorted", []time.Time{now.Add(-time.Minute), now.Add(-2 * time.Minute)}, false},
		{"budget spent a day ago", []time.Time{now.Add(-25 * time.Hour), now.Add(-24 * time.Hour)}, true},
		{"future sends ignored", []time.Time{now.Add(time.Hour), now.Add(2 * time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.RefresherDue("s1", "sql", "SQL", tt.sent, now) != nil
			if got != tt.want {
				t.Errorf("RefresherDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGapCheckReady(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	plan := &runway.Plan{StudentID: "s1", ExamID: "midterm", DaysUntilExam: 5}
	q := &quiz.Quiz{
		StudentID: "s1",
		Items: []quiz.Slot{
			{Item: bank.Item{ID: "sql-1", TopicID: "sql"}, Category: quiz.CategoryDue},
			{Item: bank.Item{ID: "arrays-2", TopicID: "arrays"}, Category: quiz.CategoryWeak},
		},
	}

	rec := g.GapCheckReady(plan, 2, q, now)
	if rec == nil {
		t.Fatal("gap check not announced")
	}
	if rec.Type != TypeGapCheck || rec.StudentID != "s1" {
		t.Errorf("record = %+v", rec)
	}
	want := "Day 2 gap check for midterm: 2 questions on sql, arrays."
	if rec.Message != want {
		t.Errorf("Message = %q, want %q", rec.Message, want)
	}
	if rec.Payload["day_number"] != 2 || rec.Payload["exam_id"] != "midterm" {
		t.Errorf("Payload = %v", rec.Payload)
	}

	if g.GapCheckReady(plan, 2, &quiz.Quiz{StudentID: "s1"}, now) != nil {
		t.Error("empty gap check announced")
	}
}

func TestRunwayMilestone(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	plan := &runway.Plan{StudentID: "s1", ExamID: "midterm", DaysUntilExam: 3, PriorityTopics: []string{"arrays", "sql"}}
	rec := g.RunwayMilestone(plan, now)
	if rec == nil {
		t.Fatal("milestone not announced")
	}
	if !strings.HasPrefix(rec.Message, "3 days until midterm.") || !strings.Contains(rec.Message, "arrays, sql") {
		t.Errorf("Message = %q", rec.Message)
	}

	plan.DaysUntilExam = 4
	if g.RunwayMilestone(plan, now) != nil {
		t.Error("non-milestone announced")
	}
}

func TestInterventionRaised(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ev := &intervention.Event{
		ID:              "ev-1",
		StudentID:       "s1",
		SessionID:       "sess",
		Topic:           "memory",
		Reason:          "You mentioned feeling confused",
		SuggestedAction: intervention.DefaultSuggestedAction,
		Timestamp:       now,
	}
	rec := g.InterventionRaised(ev, []string{"memory-1", "memory-2"})
	if rec.Type != TypeIntervention || !rec.CreatedAt.Equal(now) {
		t.Errorf("record = %+v", rec)
	}
	if rec.Payload["event_id"] != "ev-1" || rec.Payload["topic_id"] != "memory" {
		t.Errorf("Payload = %v", rec.Payload)
	}
	if g.InterventionRaised(nil, nil) != nil {
		t.Error("nil event produced a notification")
	}
}
