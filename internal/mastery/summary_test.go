package mastery

import (
	"math"
	"testing"
	"time"
)

func defaultThresholds() Thresholds {
	return Thresholds{Weak: 0.6, MinConfidence: 0.75, Strong: 0.8}
}

func TestClassify(t *testing.T) {
	th := defaultThresholds()
	tests := []struct {
		name string
		rec  Record
		want Status
	}{
		{"never attempted", Record{}, StatusNew},
		{"too little evidence", Record{Attempts: 1, Confidence: 0.5, Score: 0.1}, StatusLearning},
		{"weak", Record{Attempts: 4, Confidence: 0.8, Score: 0.3}, StatusWeak},
		{"strong", Record{Attempts: 4, Confidence: 0.8, Score: 0.85}, StatusStrong},
		{"in between", Record{Attempts: 4, Confidence: 0.8, Score: 0.7}, StatusLearning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Classify(th); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	records := []*Record{
		{TopicID: "a", Attempts: 4, Confidence: 0.8, Score: 0.4},
		{TopicID: "b", Attempts: 4, Confidence: 0.8, Score: 0.2},
		{TopicID: "c", Attempts: 4, Confidence: 0.8, Score: 0.9},
		{TopicID: "d"},
	}
	s := Summarize(records, defaultThresholds())

	if len(s.Weak) != 2 || s.Weak[0] != "b" || s.Weak[1] != "a" {
		t.Errorf("Weak = %v, want [b a]", s.Weak)
	}
	if len(s.Strong) != 1 || s.Strong[0] != "c" {
		t.Errorf("Strong = %v, want [c]", s.Strong)
	}
	if math.Abs(s.OverallProgress-0.5) > 1e-9 {
		t.Errorf("OverallProgress = %v, want 0.5", s.OverallProgress)
	}
}

func TestScheduleReview_NeverInThePast(t *testing.T) {
	r := &Record{LastAttemptAt: t0}
	r.ScheduleReview(t0.Add(-48 * time.Hour))
	if !r.NextReviewAt.Equal(t0) {
		t.Errorf("NextReviewAt = %v, want %v", r.NextReviewAt, t0)
	}
}
