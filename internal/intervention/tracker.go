package intervention

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sink receives typed signals.
type Sink interface {
	Push(ctx context.Context, sig Signal) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sig Signal) error

func (f SinkFunc) Push(ctx context.Context, sig Signal) error { return f(ctx, sig) }

// Activity is the raw interaction tally of one tracked session.
type Activity struct {
	StudentID     string
	SessionID     string
	Topic         string
	StartedAt     time.Time
	Hints         int
	Questions     int
	QuestionTimes []time.Time
	LastQuestion  string
	CopyPastes    int
	Errors        map[string]int
	Emitted       []SignalType
}

func (a *Activity) emitted(t SignalType) bool {
	for _, e := range a.Emitted {
		if e == t {
			return true
		}
	}
	return false
}

// ActivityTracker turns raw session interactions (hint requests, questions,
// errors, copy-paste, elapsed time) into typed signals. Each signal type is
// emitted at most once per session.
type ActivityTracker struct {
	rules []Rule
	sink  Sink

	mu       sync.Mutex
	sessions map[string]*Activity
}

// NewActivityTracker creates a tracker pushing to sink. A nil rules slice
// uses DefaultRules.
func NewActivityTracker(sink Sink, rules []Rule) *ActivityTracker {
	if rules == nil {
		rules = DefaultRules()
	}
	return &ActivityTracker{
		rules:    rules,
		sink:     sink,
		sessions: make(map[string]*Activity),
	}
}

// Start begins tracking a session. Restarting a tracked session resets it.
func (t *ActivityTracker) Start(studentID, sessionID, topic string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sessionID] = &Activity{
		StudentID: studentID,
		SessionID: sessionID,
		Topic:     topic,
		StartedAt: now,
		Errors:    make(map[string]int),
	}
}

// Hint records a hint request.
func (t *ActivityTracker) Hint(ctx context.Context, sessionID string, now time.Time) error {
	return t.record(ctx, sessionID, now, func(a *Activity) { a.Hints++ })
}

// Question records a free-text question.
func (t *ActivityTracker) Question(ctx context.Context, sessionID, text string, now time.Time) error {
	return t.record(ctx, sessionID, now, func(a *Activity) {
		a.Questions++
		a.QuestionTimes = append(a.QuestionTimes, now)
		a.LastQuestion = text
	})
}

// Error records an error of the given kind.
func (t *ActivityTracker) Error(ctx context.Context, sessionID, kind string, now time.Time) error {
	return t.record(ctx, sessionID, now, func(a *Activity) { a.Errors[kind]++ })
}

// CopyPaste records a copy-paste action.
func (t *ActivityTracker) CopyPaste(ctx context.Context, sessionID string, now time.Time) error {
	return t.record(ctx, sessionID, now, func(a *Activity) { a.CopyPastes++ })
}

// Tick re-evaluates time-based rules without recording an interaction.
func (t *ActivityTracker) Tick(ctx context.Context, sessionID string, now time.Time) error {
	return t.record(ctx, sessionID, now, func(*Activity) {})
}

// End stops tracking a session and returns its final tally.
func (t *ActivityTracker) End(sessionID string) *Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	return a
}

// record applies update to an active session and pushes any newly reached
// signals. Interactions for untracked sessions are ignored.
func (t *ActivityTracker) record(ctx context.Context, sessionID string, now time.Time, update func(*Activity)) error {
	t.mu.Lock()
	a, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	update(a)

	var out []Signal
	for _, r := range t.rules {
		if a.emitted(r.Type()) || !r.Check(a, now) {
			continue
		}
		a.Emitted = append(a.Emitted, r.Type())
		sig := Signal{
			StudentID:  a.StudentID,
			SessionID:  a.SessionID,
			Type:       r.Type(),
			DetectedAt: now,
		}
		if a.Topic != "" {
			sig.Metadata = map[string]string{"topic": a.Topic}
		}
		out = append(out, sig)
	}
	t.mu.Unlock()

	var errs []error
	for _, sig := range out {
		if err := t.sink.Push(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
