package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/store"
)

// conceptCheckItems is the length of the check an intervention suggests.
const conceptCheckItems = 2

// PushSignal feeds one behavioral signal to the detector. When the signal
// triggers an intervention the event is stored, a notification offering a
// concept check is produced, and the event is returned. A zero DetectedAt
// means now.
//
// Session state lives in the repository, so a session carries over between
// processes. It advances only together with the event it raised; a failed
// save leaves the stored session as it was.
//
// Signals of one session must be pushed in arrival order; use a
// Dispatcher with HandleSignal to fan in concurrent producers.
func (e *Engine) PushSignal(ctx context.Context, sig intervention.Signal) (*intervention.Event, error) {
	if sig.DetectedAt.IsZero() {
		sig.DetectedAt = e.now()
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	mu := e.locks.get(sig.StudentID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.repo.LoadSession(ctx, sig.StudentID, sig.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = intervention.NewSession(sig.StudentID, sig.SessionID)
	}
	ev, err := e.detector.Step(sess, sig)
	if err != nil {
		return nil, err
	}
	if err := e.repo.CommitSession(ctx, sess, ev); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if ev == nil {
		return nil, nil
	}

	e.log.Info("intervention raised",
		"student", ev.StudentID,
		"session", ev.SessionID,
		"reason", ev.Reason,
		"signals", len(ev.Signals),
	)

	var check []string
	if ev.Topic != "" {
		check = e.ConceptCheck(ev.Topic, conceptCheckItems)
	}
	e.deliver(ctx, e.notifier.InterventionRaised(ev, check))
	return ev, nil
}

// HandleSignal adapts PushSignal to intervention.Handler.
func (e *Engine) HandleSignal(ctx context.Context, sig intervention.Signal) error {
	_, err := e.PushSignal(ctx, sig)
	return err
}

// ActivityTracker returns a tracker whose signals feed this engine.
func (e *Engine) ActivityTracker() *intervention.ActivityTracker {
	return intervention.NewActivityTracker(intervention.SinkFunc(e.HandleSignal), nil)
}

// SessionState reports the detector state of a student session. Unknown
// sessions are normal.
func (e *Engine) SessionState(ctx context.Context, studentID, sessionID string) (intervention.State, error) {
	sess, err := e.repo.LoadSession(ctx, studentID, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return intervention.StateNormal, nil
	}
	return sess.State, nil
}

// EndSession drops the detector state of a finished session. Its events
// stay resolvable.
func (e *Engine) EndSession(ctx context.Context, studentID, sessionID string) error {
	mu := e.locks.get(studentID)
	mu.Lock()
	defer mu.Unlock()
	return e.repo.DeleteSession(ctx, studentID, sessionID)
}

// ResolveIntervention records whether the student accepted an event's
// suggested action. A pending event returns its session to normal at once.
// Unknown events, or events of another student, return
// intervention.ErrUnknownEvent. Resolving twice keeps the first response.
func (e *Engine) ResolveIntervention(ctx context.Context, studentID, eventID string, accepted bool) (*intervention.Event, error) {
	mu := e.locks.get(studentID)
	mu.Lock()
	defer mu.Unlock()

	ev, err := e.repo.LoadIntervention(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", intervention.ErrUnknownEvent, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("load intervention: %w", err)
	}
	if ev.StudentID != studentID {
		return nil, fmt.Errorf("%w: %s", intervention.ErrUnknownEvent, eventID)
	}
	if ev.Resolved {
		return ev, nil
	}

	sess, err := e.repo.LoadSession(ctx, studentID, ev.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	intervention.ResolveEvent(sess, ev, accepted, e.now())
	if err := e.repo.CommitSession(ctx, sess, ev); err != nil {
		return nil, fmt.Errorf("save intervention: %w", err)
	}
	e.log.Info("intervention resolved",
		"student", ev.StudentID, "event", ev.ID, "accepted", ev.Accepted)
	return ev, nil
}

// Interventions lists a student's events, newest first.
func (e *Engine) Interventions(ctx context.Context, studentID string, unresolvedOnly bool) ([]*intervention.Event, error) {
	return e.repo.ListInterventions(ctx, studentID, unresolvedOnly)
}
