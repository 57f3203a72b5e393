package intervention

import "time"

// Session is the detector state of one student session. It is a plain value
// so callers can keep it outside the detector between signals.
type Session struct {
	StudentID     string    `json:"student_id"`
	SessionID     string    `json:"session_id"`
	State         State     `json:"state"`
	Signals       []Signal  `json:"signals"`
	LastAt        time.Time `json:"last_at"`
	SuppressUntil time.Time `json:"suppress_until"`
	// EventID is the pending event while the session is triggered.
	EventID string `json:"event_id,omitempty"`
}

// NewSession returns a session in the normal state.
func NewSession(studentID, sessionID string) *Session {
	return &Session{StudentID: studentID, SessionID: sessionID, State: StateNormal}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Signals = append([]Signal(nil), s.Signals...)
	return &c
}

// ResolveEvent records the student's response on ev. When ev is the
// session's pending event the session returns to normal; signals inside the
// event's window stay suppressed. s may be nil. Resolving an already
// resolved event changes nothing.
func ResolveEvent(s *Session, ev *Event, accepted bool, at time.Time) {
	if ev.Resolved {
		return
	}
	ev.Resolved = true
	ev.Accepted = accepted
	ev.ResolvedAt = &at

	if s != nil && s.State == StateTriggered && s.EventID == ev.ID {
		s.State = StateNormal
		s.Signals = nil
		s.EventID = ""
	}
}
