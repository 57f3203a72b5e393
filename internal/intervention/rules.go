package intervention

import (
	"strings"
	"time"
)

// Rule turns accumulated session activity into a signal. Check reports
// whether the rule's threshold has been reached.
type Rule interface {
	Type() SignalType
	Check(a *Activity, now time.Time) bool
}

// DefaultRules returns the activity rules with their default thresholds.
func DefaultRules() []Rule {
	return []Rule{
		&HintRule{Threshold: 3},
		&RapidQuestionRule{Count: 5, Window: 5 * time.Minute},
		&LowConfidenceRule{Phrases: []string{"i don't know", "confused", "no idea", "lost", "don't understand"}},
		&RepeatedErrorRule{Threshold: 2},
		&CopyPasteRule{Threshold: 5},
		&DwellRule{After: 10 * time.Minute},
	}
}

// HintRule fires once a session has requested Threshold hints.
type HintRule struct{ Threshold int }

func (r *HintRule) Type() SignalType { return SignalMultipleHints }

func (r *HintRule) Check(a *Activity, _ time.Time) bool {
	return a.Hints >= r.Threshold
}

// RapidQuestionRule fires when Count questions arrive within Window.
type RapidQuestionRule struct {
	Count  int
	Window time.Duration
}

func (r *RapidQuestionRule) Type() SignalType { return SignalRapidQuestion }

func (r *RapidQuestionRule) Check(a *Activity, now time.Time) bool {
	from := now.Add(-r.Window)
	n := 0
	for _, t := range a.QuestionTimes {
		if !t.Before(from) {
			n++
		}
	}
	return n >= r.Count
}

// LowConfidenceRule fires when the latest question contains one of Phrases.
type LowConfidenceRule struct{ Phrases []string }

func (r *LowConfidenceRule) Type() SignalType { return SignalLowConfidence }

func (r *LowConfidenceRule) Check(a *Activity, _ time.Time) bool {
	q := strings.ToLower(a.LastQuestion)
	for _, p := range r.Phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// RepeatedErrorRule fires when any one error kind recurs Threshold times.
type RepeatedErrorRule struct{ Threshold int }

func (r *RepeatedErrorRule) Type() SignalType { return SignalRepeatedError }

func (r *RepeatedErrorRule) Check(a *Activity, _ time.Time) bool {
	for _, n := range a.Errors {
		if n >= r.Threshold {
			return true
		}
	}
	return false
}

// CopyPasteRule fires after Threshold copy-paste events.
type CopyPasteRule struct{ Threshold int }

func (r *CopyPasteRule) Type() SignalType { return SignalCopyPaste }

func (r *CopyPasteRule) Check(a *Activity, _ time.Time) bool {
	return a.CopyPastes >= r.Threshold
}

// DwellRule fires when a session has run for After with little interaction:
// no questions asked or no hints requested.
type DwellRule struct{ After time.Duration }

func (r *DwellRule) Type() SignalType { return SignalLongDwell }

func (r *DwellRule) Check(a *Activity, now time.Time) bool {
	if now.Sub(a.StartedAt) < r.After {
		return false
	}
	return a.Questions == 0 || a.Hints == 0
}
