package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/spacedrep"
	"github.com/openta/adaptive/internal/store"
)

// AttemptResult is the state after an attempt was applied.
type AttemptResult struct {
	Attempt  mastery.Attempt
	Record   *mastery.Record
	Schedule *spacedrep.Schedule
	// Refresher is set when the attempt left its topic weak and the
	// student's refresher budget allowed a reminder.
	Refresher *notify.Record
}

// SubmitAttempt grades and applies one quiz attempt. Correctness is derived
// from the bank item's answer. A zero Timestamp means now. Unknown items and
// malformed attempts return mastery.ErrInvalidAttempt; replaying an attempt
// already recorded returns store.ErrDuplicateAttempt. In both cases nothing
// is changed.
func (e *Engine) SubmitAttempt(ctx context.Context, a mastery.Attempt) (*AttemptResult, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = e.now()
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	item, ok := e.bank.Item(a.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown item %q", mastery.ErrInvalidAttempt, a.ItemID)
	}
	if a.SelectedIndex < 0 || a.SelectedIndex >= len(item.Options) {
		return nil, fmt.Errorf("%w: option %d outside item %q", mastery.ErrInvalidAttempt, a.SelectedIndex, item.ID)
	}
	a.Correct = item.IsCorrect(a.SelectedIndex)

	mu := e.locks.get(a.StudentID)
	mu.Lock()
	prevRec, err := e.repo.LoadMastery(ctx, a.StudentID, item.TopicID)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("load mastery: %w", err)
	}
	prevSched, err := e.repo.LoadSchedule(ctx, a.StudentID, item.ID)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	rec, err := e.tracker.Apply(prevRec, a, item)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	sched, err := spacedrep.ScheduleNext(e.cfg.SpacedRep, prevSched, a)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	rec.ScheduleReview(sched.DueAt)

	err = e.repo.CommitAttempt(ctx, a, rec, sched)
	mu.Unlock()
	if errors.Is(err, store.ErrDuplicateAttempt) {
		e.log.Warn("duplicate attempt rejected",
			"student", a.StudentID, "item", a.ItemID, "timestamp", a.Timestamp)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("commit attempt: %w", err)
	}

	e.log.Info("attempt applied",
		"student", a.StudentID,
		"item", a.ItemID,
		"topic", item.TopicID,
		"correct", a.Correct,
		"score", rec.Score,
		"interval_days", sched.IntervalDays,
	)

	res := &AttemptResult{Attempt: a, Record: rec, Schedule: sched}
	th := e.cfg.Thresholds()
	if !a.Correct && rec.IsWeak(th.Weak, th.MinConfidence) {
		res.Refresher = e.remind(ctx, a, item.TopicID)
	}
	return res, nil
}

// remind produces a refresher for a weak topic unless the student's daily
// budget, counted from stored notifications, is spent.
func (e *Engine) remind(ctx context.Context, a mastery.Attempt, topicID string) *notify.Record {
	mu := e.locks.get(a.StudentID)
	mu.Lock()
	defer mu.Unlock()

	ns, err := e.repo.ListNotifications(ctx, a.StudentID, false)
	if err != nil {
		e.log.Warn("load refresher history failed", "student", a.StudentID, "error", err)
		return nil
	}
	since := a.Timestamp.Add(-24 * time.Hour)
	var sent []time.Time
	for _, n := range ns {
		if n.Type == notify.TypeRefresher && n.CreatedAt.After(since) {
			sent = append(sent, n.CreatedAt)
		}
	}

	n := e.notifier.RefresherDue(a.StudentID, topicID, e.bank.TopicName(topicID), sent, a.Timestamp)
	if n == nil {
		e.log.Debug("refresher throttled", "student", a.StudentID, "topic", topicID)
		return nil
	}
	return e.deliver(ctx, n)
}

// Attempts returns a student's attempt log in commit order.
func (e *Engine) Attempts(ctx context.Context, studentID string, opts store.QueryOpts) ([]mastery.Attempt, error) {
	return e.repo.ListAttempts(ctx, studentID, opts)
}

// MasterySnapshot returns the student's mastery records sorted by topic ID.
func (e *Engine) MasterySnapshot(ctx context.Context, studentID string) ([]*mastery.Record, error) {
	snap, err := e.loadSnapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]*mastery.Record, 0, len(snap.Mastery))
	for _, r := range snap.Mastery {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

// MasterySummary aggregates the student's weak and strong topics.
func (e *Engine) MasterySummary(ctx context.Context, studentID string) (mastery.Summary, error) {
	records, err := e.MasterySnapshot(ctx, studentID)
	if err != nil {
		return mastery.Summary{}, err
	}
	return mastery.Summarize(records, e.cfg.Thresholds()), nil
}

// DueReviews returns the student's review schedules due now, most overdue
// first.
func (e *Engine) DueReviews(ctx context.Context, studentID string) ([]*spacedrep.Schedule, error) {
	schedules, err := e.repo.ListSchedules(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	return spacedrep.Due(schedules, e.now()), nil
}

// UpcomingReviews groups the student's reviews falling due over the next
// days calendar days, today included.
func (e *Engine) UpcomingReviews(ctx context.Context, studentID string, days int) ([]spacedrep.DayBucket, error) {
	if days < 0 {
		days = 0
	}
	schedules, err := e.repo.ListSchedules(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	return spacedrep.Upcoming(schedules, e.now(), days), nil
}
