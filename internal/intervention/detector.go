package intervention

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the detector thresholds.
type Config struct {
	// Window is the rolling window in which two distinct signal types
	// trigger, and the suppression period after a trigger.
	Window time.Duration `mapstructure:"window"`
	// RepeatWindow bounds the same-type repetition count.
	RepeatWindow time.Duration `mapstructure:"repeat_window"`
	// RepeatThreshold is how many same-type signals within RepeatWindow
	// trigger on their own.
	RepeatThreshold int `mapstructure:"repeat_threshold"`
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		Window:          10 * time.Minute,
		RepeatWindow:    5 * time.Minute,
		RepeatThreshold: 5,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("intervention window %s must be > 0", c.Window)
	}
	if c.RepeatWindow <= 0 || c.RepeatWindow > c.Window {
		return fmt.Errorf("intervention repeat_window %s outside (0, %s]", c.RepeatWindow, c.Window)
	}
	if c.RepeatThreshold < 2 {
		return fmt.Errorf("intervention repeat_threshold %d must be >= 2", c.RepeatThreshold)
	}
	return nil
}

type sessionKey struct {
	student string
	session string
}

// Detector runs the intervention state machine for every student session.
// Signals for one session must be observed in arrival order; the detector
// serializes its own state.
type Detector struct {
	cfg Config

	mu       sync.Mutex
	sessions map[sessionKey]*Session
	events   map[string]*Event // unresolved events only
	newID    func() string
}

// NewDetector creates a detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:      cfg,
		sessions: make(map[sessionKey]*Session),
		events:   make(map[string]*Event),
		newID:    uuid.NewString,
	}
}

// Observe feeds one signal to its session. It returns the raised event when
// the signal moves the session from watching to triggered, and nil
// otherwise. A signal timestamped before its predecessor is treated as
// arriving at the predecessor's time.
func (d *Detector) Observe(sig Signal) (*Event, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := sessionKey{student: sig.StudentID, session: sig.SessionID}
	s, ok := d.sessions[key]
	if !ok {
		s = NewSession(sig.StudentID, sig.SessionID)
		d.sessions[key] = s
	}
	ev, err := d.Step(s, sig)
	if ev != nil {
		d.events[ev.ID] = ev.Clone()
	}
	return ev, err
}

// Step advances a session the caller holds by one signal and returns the
// raised event, if any. The detector's own sessions are not touched.
func (d *Detector) Step(s *Session, sig Signal) (*Event, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if s.StudentID != sig.StudentID || s.SessionID != sig.SessionID {
		return nil, fmt.Errorf("%w: signal for %s/%s fed to session %s/%s", ErrInvalidSignal,
			sig.StudentID, sig.SessionID, s.StudentID, s.SessionID)
	}

	if sig.DetectedAt.Before(s.LastAt) {
		sig.DetectedAt = s.LastAt
	}
	s.LastAt = sig.DetectedAt
	now := sig.DetectedAt

	// Signals inside the window of the last trigger belong to it.
	if now.Before(s.SuppressUntil) {
		return nil, nil
	}
	if s.State == StateTriggered {
		// Unanswered event whose window lapsed: start watching afresh.
		s.State = StateWatching
		s.EventID = ""
	}

	s.Signals = pruneBefore(s.Signals, now.Add(-d.cfg.Window))
	s.Signals = append(s.Signals, sig)

	if s.State == StateNormal || s.State == "" {
		s.State = StateWatching
	}
	if !d.shouldTrigger(s.Signals, sig) {
		return nil, nil
	}

	ev := &Event{
		ID:              d.newID(),
		StudentID:       sig.StudentID,
		SessionID:       sig.SessionID,
		Signals:         append([]Signal(nil), s.Signals...),
		SuggestedAction: DefaultSuggestedAction,
		Timestamp:       now,
	}
	ev.Reason = explain(ev.SignalTypes())
	for _, c := range ev.Signals {
		if t := c.Metadata["topic"]; t != "" {
			ev.Topic = t
			break
		}
	}

	s.State = StateTriggered
	s.Signals = nil
	s.SuppressUntil = now.Add(d.cfg.Window)
	s.EventID = ev.ID
	return ev, nil
}

func (d *Detector) shouldTrigger(window []Signal, latest Signal) bool {
	distinct := make(map[SignalType]bool)
	for _, s := range window {
		distinct[s.Type] = true
	}
	if len(distinct) >= 2 {
		return true
	}

	repeatFrom := latest.DetectedAt.Add(-d.cfg.RepeatWindow)
	count := 0
	for _, s := range window {
		if s.Type == latest.Type && !s.DetectedAt.Before(repeatFrom) {
			count++
		}
	}
	return count >= d.cfg.RepeatThreshold
}

// Restore registers a previously raised event, for example one loaded from
// storage after a restart, so it can be resolved. Resolved events are
// ignored.
func (d *Detector) Restore(ev *Event) {
	if ev.Resolved {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[ev.ID]; !ok {
		d.events[ev.ID] = ev.Clone()
	}
}

// Resolve records the student's response to an event raised or restored by
// this detector and forgets the event. The session returns to normal at
// once if the event is still pending; signals inside the event's window stay
// suppressed.
func (d *Detector) Resolve(eventID string, accepted bool, at time.Time) (*Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev, ok := d.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	delete(d.events, eventID)
	ResolveEvent(d.sessions[sessionKey{student: ev.StudentID, session: ev.SessionID}], ev, accepted, at)
	return ev, nil
}

// State returns the current state of a session.
func (d *Detector) State(studentID, sessionID string) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[sessionKey{student: studentID, session: sessionID}]; ok {
		return s.State
	}
	return StateNormal
}

// EndSession drops all state of a session, including its unresolved events.
func (d *Detector) EndSession(studentID, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, sessionKey{student: studentID, session: sessionID})
	for id, ev := range d.events {
		if ev.StudentID == studentID && ev.SessionID == sessionID {
			delete(d.events, id)
		}
	}
}

func pruneBefore(signals []Signal, cutoff time.Time) []Signal {
	i := 0
	for i < len(signals) && signals[i].DetectedAt.Before(cutoff) {
		i++
	}
	return signals[i:]
}
