package store

import (
	"context"
	"errors"
	"time"

	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/spacedrep"
)

var (
	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAttempt is returned when an attempt with the same student,
	// item and timestamp was already committed. Nothing is written.
	ErrDuplicateAttempt = errors.New("duplicate attempt")
)

// QueryOpts configures attempt queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// MasteryRepo stores one mastery record per (student, topic).
type MasteryRepo interface {
	// LoadMastery returns the record, or nil if the student has never
	// attempted the topic.
	LoadMastery(ctx context.Context, studentID, topicID string) (*mastery.Record, error)
	// ListMastery returns all of a student's records sorted by topic ID.
	ListMastery(ctx context.Context, studentID string) ([]*mastery.Record, error)
	SaveMastery(ctx context.Context, rec *mastery.Record) error
}

// ScheduleRepo stores one review schedule per (student, item).
type ScheduleRepo interface {
	// LoadSchedule returns the schedule, or nil if the item was never
	// attempted.
	LoadSchedule(ctx context.Context, studentID, itemID string) (*spacedrep.Schedule, error)
	// ListSchedules returns all of a student's schedules sorted by item ID.
	ListSchedules(ctx context.Context, studentID string) ([]*spacedrep.Schedule, error)
	SaveSchedule(ctx context.Context, s *spacedrep.Schedule) error
}

// AttemptRepo is the write-once attempt log.
type AttemptRepo interface {
	// CommitAttempt appends the attempt and saves the mastery record and
	// review schedule it produced, atomically. A replayed attempt returns
	// ErrDuplicateAttempt and changes nothing.
	CommitAttempt(ctx context.Context, a mastery.Attempt, rec *mastery.Record, sched *spacedrep.Schedule) error
	// ListAttempts returns a student's attempts in commit order.
	ListAttempts(ctx context.Context, studentID string, opts QueryOpts) ([]mastery.Attempt, error)
}

// PlanRepo stores the latest exam plan per (student, exam).
type PlanRepo interface {
	// SavePlan replaces any previous plan for the same student and exam.
	SavePlan(ctx context.Context, p *runway.Plan) error
	LoadPlan(ctx context.Context, studentID, examID string) (*runway.Plan, error)
}

// NotificationRepo stores generated notifications.
type NotificationRepo interface {
	SaveNotification(ctx context.Context, n *notify.Record) error
	// ListNotifications returns a student's notifications, newest first.
	ListNotifications(ctx context.Context, studentID string, unreadOnly bool) ([]*notify.Record, error)
	// MarkRead flips the read flag. Marking twice is not an error.
	MarkRead(ctx context.Context, studentID, id string) error
}

// InterventionRepo stores raised intervention events.
type InterventionRepo interface {
	// SaveIntervention inserts or replaces an event.
	SaveIntervention(ctx context.Context, ev *intervention.Event) error
	LoadIntervention(ctx context.Context, id string) (*intervention.Event, error)
	// ListInterventions returns a student's events, newest first.
	ListInterventions(ctx context.Context, studentID string, unresolvedOnly bool) ([]*intervention.Event, error)
}

// SessionRepo stores the detector state of open student sessions, so the
// intervention state machine carries over between processes.
type SessionRepo interface {
	// LoadSession returns the session, or nil if none is stored.
	LoadSession(ctx context.Context, studentID, sessionID string) (*intervention.Session, error)
	// CommitSession saves a session and the event it raised or resolved,
	// atomically. Either may be nil.
	CommitSession(ctx context.Context, sess *intervention.Session, ev *intervention.Event) error
	// DeleteSession drops a session. Deleting a missing session is not an
	// error.
	DeleteSession(ctx context.Context, studentID, sessionID string) error
}

// Repository aggregates every store the engine needs.
type Repository interface {
	MasteryRepo
	ScheduleRepo
	AttemptRepo
	PlanRepo
	NotificationRepo
	InterventionRepo
	SessionRepo
	Close() error
}
