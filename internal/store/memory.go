package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/spacedrep"
)

type pairKey struct{ a, b string }

type attemptKey struct {
	student, item string
	ts            int64
}

// Memory is an in-process Repository. Values are copied in and out, so
// callers never share state with the store.
type Memory struct {
	mu            sync.RWMutex
	mastery       map[pairKey]*mastery.Record
	schedules     map[pairKey]*spacedrep.Schedule
	attempts      []mastery.Attempt
	attemptSeen   map[attemptKey]bool
	plans         map[pairKey][]byte
	notifications []*notify.Record
	interventions map[string]*intervention.Event
	evOrder       []string
	sessions      map[pairKey]*intervention.Session
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		mastery:       make(map[pairKey]*mastery.Record),
		schedules:     make(map[pairKey]*spacedrep.Schedule),
		attemptSeen:   make(map[attemptKey]bool),
		plans:         make(map[pairKey][]byte),
		interventions: make(map[string]*intervention.Event),
		sessions:      make(map[pairKey]*intervention.Session),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) LoadMastery(_ context.Context, studentID, topicID string) (*mastery.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.mastery[pairKey{studentID, topicID}]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (m *Memory) ListMastery(_ context.Context, studentID string) ([]*mastery.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*mastery.Record
	for k, r := range m.mastery {
		if k.a == studentID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func (m *Memory) SaveMastery(_ context.Context, rec *mastery.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mastery[pairKey{rec.StudentID, rec.TopicID}] = rec.Clone()
	return nil
}

func (m *Memory) LoadSchedule(_ context.Context, studentID, itemID string) (*spacedrep.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.schedules[pairKey{studentID, itemID}]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *Memory) ListSchedules(_ context.Context, studentID string) ([]*spacedrep.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*spacedrep.Schedule
	for k, s := range m.schedules {
		if k.a == studentID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Memory) SaveSchedule(_ context.Context, s *spacedrep.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[pairKey{s.StudentID, s.ItemID}] = s.Clone()
	return nil
}

func (m *Memory) CommitAttempt(_ context.Context, a mastery.Attempt, rec *mastery.Record, sched *spacedrep.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey{a.StudentID, a.ItemID, a.Timestamp.UnixNano()}
	if m.attemptSeen[key] {
		return fmt.Errorf("%w: %s/%s at %s", ErrDuplicateAttempt, a.StudentID, a.ItemID, formatTime(a.Timestamp))
	}
	m.attemptSeen[key] = true
	m.attempts = append(m.attempts, a)
	if rec != nil {
		m.mastery[pairKey{rec.StudentID, rec.TopicID}] = rec.Clone()
	}
	if sched != nil {
		m.schedules[pairKey{sched.StudentID, sched.ItemID}] = sched.Clone()
	}
	return nil
}

func (m *Memory) ListAttempts(_ context.Context, studentID string, opts QueryOpts) ([]mastery.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []mastery.Attempt
	for _, a := range m.attempts {
		if a.StudentID != studentID {
			continue
		}
		if !opts.From.IsZero() && a.Timestamp.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && a.Timestamp.After(opts.To) {
			continue
		}
		out = append(out, a)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// Plans are kept serialized so the nested day slices are never shared.
func (m *Memory) SavePlan(_ context.Context, p *runway.Plan) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[pairKey{p.StudentID, p.ExamID}] = b
	return nil
}

func (m *Memory) LoadPlan(_ context.Context, studentID, examID string) (*runway.Plan, error) {
	m.mu.RLock()
	b, ok := m.plans[pairKey{studentID, examID}]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plan %s/%s: %w", studentID, examID, ErrNotFound)
	}
	var p runway.Plan
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &p, nil
}

func (m *Memory) SaveNotification(_ context.Context, n *notify.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *n
	m.notifications = append(m.notifications, &c)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, studentID string, unreadOnly bool) ([]*notify.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*notify.Record
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.StudentID != studentID || (unreadOnly && n.Read) {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkRead(_ context.Context, studentID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.StudentID == studentID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, ErrNotFound)
}

func (m *Memory) SaveIntervention(_ context.Context, ev *intervention.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveIntervention(ev)
	return nil
}

func (m *Memory) saveIntervention(ev *intervention.Event) {
	if _, ok := m.interventions[ev.ID]; !ok {
		m.evOrder = append(m.evOrder, ev.ID)
	}
	m.interventions[ev.ID] = ev.Clone()
}

func (m *Memory) LoadIntervention(_ context.Context, id string) (*intervention.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.interventions[id]
	if !ok {
		return nil, fmt.Errorf("intervention %s: %w", id, ErrNotFound)
	}
	return ev.Clone(), nil
}

func (m *Memory) ListInterventions(_ context.Context, studentID string, unresolvedOnly bool) ([]*intervention.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*intervention.Event
	for i := len(m.evOrder) - 1; i >= 0; i-- {
		ev := m.interventions[m.evOrder[i]]
		if ev.StudentID != studentID || (unresolvedOnly && ev.Resolved) {
			continue
		}
		out = append(out, ev.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) LoadSession(_ context.Context, studentID, sessionID string) (*intervention.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[pairKey{studentID, sessionID}]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *Memory) CommitSession(_ context.Context, sess *intervention.Session, ev *intervention.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev != nil {
		m.saveIntervention(ev)
	}
	if sess != nil {
		m.sessions[pairKey{sess.StudentID, sess.SessionID}] = sess.Clone()
	}
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, studentID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, pairKey{studentID, sessionID})
	return nil
}
