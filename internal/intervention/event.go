package intervention

import "time"

// DefaultSuggestedAction is offered with every event.
const DefaultSuggestedAction = "Take a quick 2-question concept check to identify gaps"

// State is the detector state of one student session. Resolving the pending
// event returns a session straight to normal.
type State string

const (
	StateNormal    State = "normal"
	StateWatching  State = "watching"
	StateTriggered State = "triggered"
)

// Event is a raised intervention. It is consumed once by the student-facing
// surface and then resolved.
type Event struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	SessionID       string     `json:"session_id"`
	Topic           string     `json:"topic,omitempty"`
	Reason          string     `json:"reason"`
	Signals         []Signal   `json:"signals"`
	SuggestedAction string     `json:"suggested_action"`
	Timestamp       time.Time  `json:"timestamp"`
	Resolved        bool       `json:"resolved"`
	Accepted        bool       `json:"accepted"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.Signals = append([]Signal(nil), e.Signals...)
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// SignalTypes returns the distinct contributing signal types in first-seen
// order.
func (e *Event) SignalTypes() []SignalType {
	seen := make(map[SignalType]bool)
	var out []SignalType
	for _, s := range e.Signals {
		if !seen[s.Type] {
			seen[s.Type] = true
			out = append(out, s.Type)
		}
	}
	return out
}
