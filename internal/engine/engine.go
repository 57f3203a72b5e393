// Package engine exposes the adaptive learning operations over a question
// bank and a repository: attempts, mastery snapshots, daily quizzes, exam
// runways, intervention signals and notifications.
//
// Writes are serialized per student. Reads that build quizzes or plans take
// the student's read lock while loading, so they never observe a
// half-applied attempt. All per-student state, intervention sessions
// included, lives in the repository, so separate processes sharing one
// database behave like a single engine.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/config"
	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/logging"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/spacedrep"
	"github.com/openta/adaptive/internal/store"
)

// Clock returns the current time.
type Clock func() time.Time

// Options configures an Engine. Zero fields fall back to defaults: the
// embedded sample bank, an in-memory repository, a no-op logger and the
// wall clock. Config is always validated.
type Options struct {
	Config config.Config
	Bank   *bank.Bank
	Repo   store.Repository
	Logger *logging.Logger
	Clock  Clock
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg  config.Config
	bank *bank.Bank
	repo store.Repository
	log  *logging.Logger
	now  Clock

	tracker  *mastery.Tracker
	selector *quiz.Selector
	planner  *runway.Planner
	detector *intervention.Detector
	notifier *notify.Generator

	locks   studentLocks
	quizzes singleflight.Group
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if opts.Bank == nil {
		opts.Bank = bank.Default()
	}
	if opts.Repo == nil {
		opts.Repo = store.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	cfg := opts.Config
	return &Engine{
		cfg:      cfg,
		bank:     opts.Bank,
		repo:     opts.Repo,
		log:      opts.Logger,
		now:      opts.Clock,
		tracker:  mastery.NewTracker(cfg.Mastery),
		selector: quiz.NewSelector(cfg.Quiz, opts.Bank),
		planner:  runway.NewPlanner(cfg.Runway, opts.Bank),
		detector: intervention.NewDetector(cfg.Intervention),
		notifier: notify.NewGenerator(cfg.Notify),
		locks:    studentLocks{m: make(map[string]*sync.RWMutex)},
	}, nil
}

// Bank returns the question bank the engine serves from.
func (e *Engine) Bank() *bank.Bank {
	return e.bank
}

// Close releases the repository.
func (e *Engine) Close() error {
	return e.repo.Close()
}

// studentLocks hands out one RWMutex per student, created on first use.
type studentLocks struct {
	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

func (l *studentLocks) get(studentID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[studentID]
	if !ok {
		mu = &sync.RWMutex{}
		l.m[studentID] = mu
	}
	return mu
}

// loadSnapshot reads a student's mastery map and review schedules under the
// student's read lock.
func (e *Engine) loadSnapshot(ctx context.Context, studentID string) (quiz.Snapshot, error) {
	mu := e.locks.get(studentID)
	mu.RLock()
	defer mu.RUnlock()

	records, err := e.repo.ListMastery(ctx, studentID)
	if err != nil {
		return quiz.Snapshot{}, fmt.Errorf("load mastery: %w", err)
	}
	schedules, err := e.repo.ListSchedules(ctx, studentID)
	if err != nil {
		return quiz.Snapshot{}, fmt.Errorf("load schedules: %w", err)
	}

	snap := quiz.Snapshot{
		StudentID: studentID,
		Mastery:   make(map[string]*mastery.Record, len(records)),
		Schedules: make(map[string]*spacedrep.Schedule, len(schedules)),
	}
	for _, r := range records {
		snap.Mastery[r.TopicID] = r
	}
	for _, s := range schedules {
		snap.Schedules[s.ItemID] = s
	}
	return snap, nil
}

// deliver persists a generated notification. Failures are logged and never
// fail the operation that produced the notification.
func (e *Engine) deliver(ctx context.Context, n *notify.Record) *notify.Record {
	if n == nil {
		return nil
	}
	if err := e.repo.SaveNotification(ctx, n); err != nil {
		e.log.Warn("save notification failed",
			"student", n.StudentID, "type", string(n.Type), "error", err)
		return nil
	}
	return n
}

// Thresholds returns the weak/strong classification in effect.
func (e *Engine) Thresholds() mastery.Thresholds {
	return e.cfg.Thresholds()
}
