package intervention

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSignal is returned for signals missing a student, session
	// or type, or carrying an unknown type.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrUnknownEvent is returned when resolving an event that does not exist.
	ErrUnknownEvent = errors.New("unknown intervention event")
)

// SignalType enumerates the behavioral signals the detector understands.
type SignalType string

const (
	SignalMultipleHints SignalType = "multiple_hints"
	SignalLongDwell     SignalType = "long_dwell"
	SignalRepeatedError SignalType = "repeated_error"
	SignalCopyPaste     SignalType = "excessive_copy_paste"
	SignalLowConfidence SignalType = "low_confidence_language"
	SignalRapidQuestion SignalType = "rapid_questions"
)

var explanations = map[SignalType]string{
	SignalMultipleHints: "You've requested several hints",
	SignalLongDwell:     "You've been working on this for a while",
	SignalRepeatedError: "You're encountering the same error repeatedly",
	SignalCopyPaste:     "There's a lot of trial-and-error happening",
	SignalLowConfidence: "You mentioned feeling confused",
	SignalRapidQuestion: "You have several questions coming up quickly",
}

// SignalTypes returns the recognized signal types.
func SignalTypes() []SignalType {
	return []SignalType{
		SignalMultipleHints, SignalLongDwell, SignalRepeatedError,
		SignalCopyPaste, SignalLowConfidence, SignalRapidQuestion,
	}
}

// Valid reports whether t is a recognized signal type.
func (t SignalType) Valid() bool {
	_, ok := explanations[t]
	return ok
}

// Signal is one typed behavioral observation. Signals are ephemeral: the
// detector keeps them only for its rolling window.
type Signal struct {
	StudentID  string            `json:"student_id"`
	SessionID  string            `json:"session_id"`
	Type       SignalType        `json:"signal_type"`
	DetectedAt time.Time         `json:"detected_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Validate checks the signal fields the detector depends on.
func (s Signal) Validate() error {
	switch {
	case s.StudentID == "":
		return fmt.Errorf("%w: empty student ID", ErrInvalidSignal)
	case s.SessionID == "":
		return fmt.Errorf("%w: empty session ID", ErrInvalidSignal)
	case !s.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSignal, s.Type)
	case s.DetectedAt.IsZero():
		return fmt.Errorf("%w: missing detection time", ErrInvalidSignal)
	}
	return nil
}

// explain renders a short human explanation of up to three signal types.
func explain(types []SignalType) string {
	var parts []string
	for _, t := range types {
		if len(parts) == 3 {
			break
		}
		parts = append(parts, explanations[t])
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
