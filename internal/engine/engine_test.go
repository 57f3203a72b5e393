package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/config"
	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/store"
)

var t0 = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testBank(t *testing.T) *bank.Bank {
	t.Helper()
	topics := []bank.Topic{
		{ID: "arrays", Name: "Arrays"},
		{ID: "memory", Name: "Memory"},
		{ID: "sql", Name: "SQL"},
	}
	var items []bank.Item
	for _, topic := range topics {
		for i := 1; i <= 3; i++ {
			items = append(items, bank.Item{
				ID:          fmt.Sprintf("%s-%d", topic.ID, i),
				TopicID:     topic.ID,
				Difficulty:  float64(i) / 4,
				Prompt:      "?",
				Options:     []string{"a", "b", "c"},
				AnswerIndex: 0,
			})
		}
	}
	b, err := bank.New(topics, items)
	require.NoError(t, err)
	return b
}

func newTestEngine(t *testing.T, repo store.Repository) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	if repo == nil {
		repo = store.NewMemory()
	}
	e, err := New(Options{
		Config: config.DefaultConfig(),
		Bank:   testBank(t),
		Repo:   repo,
		Clock:  clock.Now,
	})
	require.NoError(t, err)
	return e, clock
}

func answer(student, item string, correct bool, at time.Time) mastery.Attempt {
	sel := 0
	if !correct {
		sel = 1
	}
	return mastery.Attempt{StudentID: student, ItemID: item, SelectedIndex: sel, ResponseTimeSeconds: 5, Timestamp: at}
}

func sessionState(t *testing.T, e *Engine, sessionID string) intervention.State {
	t.Helper()
	state, err := e.SessionState(context.Background(), "s1", sessionID)
	require.NoError(t, err)
	return state
}

// failingSessions fails CommitSession while fail is set.
type failingSessions struct {
	*store.Memory
	fail bool
}

func (f *failingSessions) CommitSession(ctx context.Context, sess *intervention.Session, ev *intervention.Event) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.CommitSession(ctx, sess, ev)
}

func countType(ns []*notify.Record, typ notify.Type) int {
	n := 0
	for _, r := range ns {
		if r.Type == typ {
			n++
		}
	}
	return n
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mastery.LearningRate = 0
	_, err := New(Options{Config: cfg})
	assert.Error(t, err)
}

func TestSubmitAttempt_AppliesAndPersists(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := e.SubmitAttempt(ctx, answer("s1", "arrays-2", true, t0))
	require.NoError(t, err)
	assert.True(t, res.Attempt.Correct, "correctness comes from the bank answer")
	assert.Greater(t, res.Record.Score, 0.0)
	assert.Equal(t, 1, res.Schedule.IntervalDays)
	assert.True(t, res.Record.NextReviewAt.Equal(res.Schedule.DueAt))

	snap, err := e.MasterySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "arrays", snap[0].TopicID)
	assert.Equal(t, 1, snap[0].Attempts)

	attempts, err := e.Attempts(ctx, "s1", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSubmitAttempt_ZeroTimestampUsesClock(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	a := answer("s1", "sql-1", true, time.Time{})
	res, err := e.SubmitAttempt(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, res.Attempt.Timestamp.Equal(t0))
}

func TestSubmitAttempt_Invalid(t *testing.T) {
	tests := []struct {
		name string
		a    mastery.Attempt
	}{
		{"unknown item", answer("s1", "nope", true, t0)},
		{"empty student", answer("", "arrays-1", true, t0)},
		{"negative response time", mastery.Attempt{StudentID: "s1", ItemID: "arrays-1", ResponseTimeSeconds: -1, Timestamp: t0}},
		{"option out of range", mastery.Attempt{StudentID: "s1", ItemID: "arrays-1", SelectedIndex: 7, Timestamp: t0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, nil)
			ctx := context.Background()
			_, err := e.SubmitAttempt(ctx, tt.a)
			assert.ErrorIs(t, err, mastery.ErrInvalidAttempt)

			snap, err := e.MasterySnapshot(ctx, "s1")
			require.NoError(t, err)
			assert.Empty(t, snap, "rejected attempt must not be applied")
		})
	}
}

func TestSubmitAttempt_ReplayRejected(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()
	a := answer("s1", "arrays-1", true, t0)

	first, err := e.SubmitAttempt(ctx, a)
	require.NoError(t, err)

	_, err = e.SubmitAttempt(ctx, a)
	assert.ErrorIs(t, err, store.ErrDuplicateAttempt)

	snap, err := e.MasterySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, first.Record.Score, snap[0].Score, "replay must not be double-counted")
	assert.Equal(t, 1, snap[0].Attempts)
}

func TestSubmitAttempt_RefresherThrottled(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	var refreshers []bool
	for i := 0; i < 5; i++ {
		res, err := e.SubmitAttempt(ctx, answer("s1", "memory-1", false, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		refreshers = append(refreshers, res.Refresher != nil)
	}

	// Not weak until three attempts give enough confidence, then the daily
	// budget of two allows two reminders.
	want := []bool{false, false, true, true, false}
	assert.Equal(t, want, refreshers)

	ns, err := e.Notifications(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, countType(ns, notify.TypeRefresher))
}

func TestSubmitAttempt_RefresherBudgetSharedAcrossEngines(t *testing.T) {
	repo := store.NewMemory()
	ctx := context.Background()

	var refreshers []bool
	for i := 0; i < 5; i++ {
		e, _ := newTestEngine(t, repo)
		res, err := e.SubmitAttempt(ctx, answer("s1", "memory-1", false, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		refreshers = append(refreshers, res.Refresher != nil)
	}
	assert.Equal(t, []bool{false, false, true, true, false}, refreshers)
}

func TestSubmitAttempt_ConcurrentSameStudent(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				at := t0.Add(time.Duration(w*perWorker+i) * time.Second)
				if _, err := e.SubmitAttempt(ctx, answer("s1", "arrays-1", i%2 == 0, at)); err != nil {
					errs <- err
				}
			}
		}(w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.DailyQuiz(ctx, "s1", 3); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent operation: %v", err)
	}

	snap, err := e.MasterySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, workers*perWorker, snap[0].Attempts, "no lost updates")
	assert.Equal(t, workers*perWorker/2, snap[0].Correct)
}

func TestMasterySummary(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		at := t0.Add(time.Duration(i) * time.Minute)
		_, err := e.SubmitAttempt(ctx, answer("s1", "sql-1", false, at))
		require.NoError(t, err)
		_, err = e.SubmitAttempt(ctx, answer("s1", "arrays-3", true, at))
		require.NoError(t, err)
	}

	sum, err := e.MasterySummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sql"}, sum.Weak)
	assert.Greater(t, sum.OverallProgress, 0.0)
}

func TestDailyQuiz_NewStudent(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	q, err := e.DailyQuiz(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, q.Items, config.DefaultConfig().Quiz.DefaultCount)
	assert.GreaterOrEqual(t, len(q.Topics()), 2)
	for _, s := range q.Items {
		assert.Equal(t, quiz.CategoryExplore, s.Category)
	}

	again, err := e.DailyQuiz(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, q.ItemIDs(), again.ItemIDs(), "same day, same quiz")

	ns, err := e.Notifications(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, countType(ns, notify.TypeDailyQuiz), "announced once per day")
}

func TestDailyQuiz_AnnouncedOnceAcrossEngines(t *testing.T) {
	repo := store.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, _ := newTestEngine(t, repo)
		_, err := e.DailyQuiz(ctx, "s1", 3)
		require.NoError(t, err)
	}
	ns, err := repo.ListNotifications(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, countType(ns, notify.TypeDailyQuiz))

	next, clock := newTestEngine(t, repo)
	clock.Advance(24 * time.Hour)
	_, err = next.DailyQuiz(ctx, "s1", 3)
	require.NoError(t, err)
	ns, err = repo.ListNotifications(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, countType(ns, notify.TypeDailyQuiz), "a new day is announced again")
}

func TestDailyQuiz_DueReviewFirst(t *testing.T) {
	e, clock := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.SubmitAttempt(ctx, answer("s1", "memory-3", true, t0))
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)

	due, err := e.DueReviews(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, due, 1)

	q, err := e.DailyQuiz(ctx, "s1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, q.Items)
	assert.Equal(t, "memory-3", q.Items[0].Item.ID)
	assert.Equal(t, quiz.CategoryDue, q.Items[0].Category)
}

func TestDailyQuiz_NegativeCount(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.DailyQuiz(context.Background(), "s1", -1)
	assert.Error(t, err)
}

func TestUpcomingReviews(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.SubmitAttempt(ctx, answer("s1", "arrays-1", true, t0))
	require.NoError(t, err)

	buckets, err := e.UpcomingReviews(ctx, "s1", 7)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "2026-10-06", buckets[0].Date)
	assert.Equal(t, []string{"arrays-1"}, buckets[0].ItemIDs)
}

func TestExamRunway(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	plan, err := e.ExamRunway(ctx, runway.Request{
		StudentID: "s1", ExamID: "midterm", ExamDate: t0.Add(72 * time.Hour), HoursPerDay: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.DaysUntilExam)
	assert.Len(t, plan.Days, 3)

	stored, err := e.ExamPlan(ctx, "s1", "midterm")
	require.NoError(t, err)
	assert.Equal(t, len(plan.Days), len(stored.Days))

	ns, err := e.Notifications(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, countType(ns, notify.TypeExamRunway), "three days out is a milestone")
}

func TestGapCheck(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.SubmitAttempt(ctx, answer("s1", "arrays-2", false, t0.Add(-48*time.Hour)))
	require.NoError(t, err)
	plan, err := e.ExamRunway(ctx, runway.Request{
		StudentID: "s1", ExamID: "midterm", ExamDate: t0.Add(72 * time.Hour), HoursPerDay: 2,
	})
	require.NoError(t, err)
	require.Len(t, plan.Days, 3)
	require.Equal(t, []string{"arrays", "memory"}, plan.Days[0].FocusTopics)

	q, err := e.GapCheck(ctx, "s1", "midterm", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"arrays-2", "arrays-1", "memory-1", "arrays-3", "memory-2"}, q.ItemIDs())
	assert.Equal(t, quiz.CategoryDue, q.Items[0].Category)

	_, err = e.GapCheck(ctx, "s1", "midterm", 1)
	require.NoError(t, err)
	ns, err := e.Notifications(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, countType(ns, notify.TypeGapCheck), "announced once per day of the plan")

	// The taper day has no gap check.
	last, err := e.GapCheck(ctx, "s1", "midterm", 3)
	require.NoError(t, err)
	assert.Empty(t, last.Items)

	_, err = e.GapCheck(ctx, "s1", "midterm", 4)
	assert.Error(t, err)
	_, err = e.GapCheck(ctx, "s1", "final", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExamRunway_InvalidStoresNothing(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.ExamRunway(ctx, runway.Request{
		StudentID: "s1", ExamID: "midterm", ExamDate: t0.Add(-time.Hour), HoursPerDay: 2,
	})
	assert.ErrorIs(t, err, runway.ErrInvalidExamDate)

	_, err = e.ExamPlan(ctx, "s1", "midterm")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func signal(typ intervention.SignalType, at time.Time) intervention.Signal {
	return intervention.Signal{
		StudentID: "s1", SessionID: "sess", Type: typ, DetectedAt: at,
		Metadata: map[string]string{"topic": "memory"},
	}
}

func TestPushSignal_RaisesAndResolves(t *testing.T) {
	repo := store.NewMemory()
	e, _ := newTestEngine(t, repo)
	ctx := context.Background()

	ev, err := e.PushSignal(ctx, signal(intervention.SignalMultipleHints, t0))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, intervention.StateWatching, sessionState(t, e, "sess"))

	ev, err = e.PushSignal(ctx, signal(intervention.SignalLowConfidence, t0.Add(time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "memory", ev.Topic)
	assert.Equal(t, intervention.StateTriggered, sessionState(t, e, "sess"))

	ns, err := e.Notifications(ctx, "s1", false)
	require.NoError(t, err)
	require.Equal(t, 1, countType(ns, notify.TypeIntervention))
	assert.Equal(t, []string{"memory-1", "memory-2"}, ns[0].Payload["item_ids"])

	_, err = e.ResolveIntervention(ctx, "someone-else", ev.ID, true)
	assert.ErrorIs(t, err, intervention.ErrUnknownEvent)

	// A fresh engine over the same repository resolves events it never saw.
	restarted, _ := newTestEngine(t, repo)
	resolved, err := restarted.ResolveIntervention(ctx, "s1", ev.ID, true)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.True(t, resolved.Accepted)

	open, err := e.Interventions(ctx, "s1", true)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestPushSignal_SessionCarriesAcrossEngines(t *testing.T) {
	repo := store.NewMemory()
	ctx := context.Background()

	first, _ := newTestEngine(t, repo)
	ev, err := first.PushSignal(ctx, signal(intervention.SignalMultipleHints, t0))
	require.NoError(t, err)
	assert.Nil(t, ev)

	second, _ := newTestEngine(t, repo)
	assert.Equal(t, intervention.StateWatching, sessionState(t, second, "sess"))
	ev, err = second.PushSignal(ctx, signal(intervention.SignalRapidQuestion, t0.Add(2*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, ev, "window started in another engine")

	// Suppressed in a third engine too.
	third, _ := newTestEngine(t, repo)
	again, err := third.PushSignal(ctx, signal(intervention.SignalCopyPaste, t0.Add(3*time.Minute)))
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = third.ResolveIntervention(ctx, "s1", ev.ID, false)
	require.NoError(t, err)
	assert.Equal(t, intervention.StateNormal, sessionState(t, first, "sess"))
}

func TestPushSignal_FailedSaveKeepsSession(t *testing.T) {
	repo := &failingSessions{Memory: store.NewMemory()}
	e, _ := newTestEngine(t, repo)
	ctx := context.Background()

	_, err := e.PushSignal(ctx, signal(intervention.SignalMultipleHints, t0))
	require.NoError(t, err)

	repo.fail = true
	ev, err := e.PushSignal(ctx, signal(intervention.SignalLowConfidence, t0.Add(time.Minute)))
	require.Error(t, err)
	assert.Nil(t, ev)
	repo.fail = false

	assert.Equal(t, intervention.StateWatching, sessionState(t, e, "sess"))
	events, err := e.Interventions(ctx, "s1", false)
	require.NoError(t, err)
	assert.Empty(t, events)

	ev, err = e.PushSignal(ctx, signal(intervention.SignalLowConfidence, t0.Add(time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, ev, "retry raises the event the failed save lost")
	_, err = e.ResolveIntervention(ctx, "s1", ev.ID, true)
	require.NoError(t, err)
}

func TestResolveIntervention_Unknown(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.ResolveIntervention(context.Background(), "s1", "missing", false)
	assert.ErrorIs(t, err, intervention.ErrUnknownEvent)
}

func TestActivityTracker_FeedsDetector(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()
	tr := e.ActivityTracker()
	tr.Start("s1", "sess", "sql", t0)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Hint(ctx, "sess", t0.Add(time.Duration(i)*time.Minute)))
	}
	assert.Equal(t, intervention.StateWatching, sessionState(t, e, "sess"))

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.CopyPaste(ctx, "sess", t0.Add(4*time.Minute)))
	}
	assert.Equal(t, intervention.StateTriggered, sessionState(t, e, "sess"))

	events, err := e.Interventions(ctx, "s1", true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sql", events[0].Topic)

	require.NoError(t, e.EndSession(ctx, "s1", "sess"))
	assert.Equal(t, intervention.StateNormal, sessionState(t, e, "sess"))
}

func TestDispatcher_DrivesEngine(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := intervention.NewDispatcher(4, 16, e.HandleSignal, nil)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Push(ctx, signal(intervention.SignalMultipleHints, t0)))
	require.NoError(t, d.Push(ctx, signal(intervention.SignalRepeatedError, t0.Add(time.Minute))))
	d.Close()
	require.NoError(t, <-done)

	events, err := e.Interventions(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAckNotification(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()
	_, err := e.DailyQuiz(ctx, "s1", 2)
	require.NoError(t, err)

	ns, err := e.Notifications(ctx, "s1", true)
	require.NoError(t, err)
	require.Len(t, ns, 1)

	require.NoError(t, e.AckNotification(ctx, "s1", ns[0].ID))
	require.NoError(t, e.AckNotification(ctx, "s1", ns[0].ID))
	assert.ErrorIs(t, e.AckNotification(ctx, "s1", "missing"), store.ErrNotFound)

	unread, err := e.Notifications(ctx, "s1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
