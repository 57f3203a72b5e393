package quiz

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/spacedrep"
)

// Selector builds daily quizzes from a question bank.
type Selector struct {
	cfg  Config
	bank *bank.Bank
}

// NewSelector creates a selector over b.
func NewSelector(cfg Config, b *bank.Bank) *Selector {
	return &Selector{cfg: cfg, bank: b}
}

// Select picks up to count items for the student: due reviews first, then
// weak topics, then items spread across the whole topic map. The result is
// reproducible for a given snapshot and calendar day.
func (s *Selector) Select(snap Snapshot, count int, now time.Time) *Quiz {
	q := &Quiz{StudentID: snap.StudentID, Date: dateKey(now), Requested: count}
	if count <= 0 {
		return q
	}

	picked := make(map[string]bool)
	add := func(it bank.Item, cat Category) bool {
		if picked[it.ID] || len(q.Items) >= count {
			return false
		}
		picked[it.ID] = true
		q.Items = append(q.Items, Slot{Item: it, Category: cat})
		return true
	}

	// 1. Due reviews, most overdue first.
	for _, sched := range s.dueSchedules(snap, now) {
		it, ok := s.bank.Item(sched.ItemID)
		if !ok {
			continue
		}
		add(it, CategoryDue)
	}

	// 2. Weak topics, weakest first.
	if len(q.Items) < count {
		s.fillRoundRobin(s.weakCandidates(snap), CategoryWeak, add, count, len(q.Items))
	}

	// 3. Exploration across the topic map.
	if len(q.Items) < count {
		s.fillRoundRobin(s.exploreCandidates(snap, now), CategoryExplore, add, count, len(q.Items))
	}

	q.Short = len(q.Items) < count
	return q
}

func (s *Selector) dueSchedules(snap Snapshot, now time.Time) []*spacedrep.Schedule {
	all := make([]*spacedrep.Schedule, 0, len(snap.Schedules))
	for _, sched := range snap.Schedules {
		all = append(all, sched)
	}
	return spacedrep.Due(all, now)
}

// fillRoundRobin takes one item per topic per round until count is reached
// or every topic queue is exhausted.
func (s *Selector) fillRoundRobin(queues [][]bank.Item, cat Category, add func(bank.Item, Category) bool, count, have int) {
	for have < count {
		progressed := false
		for i := range queues {
			for len(queues[i]) > 0 {
				it := queues[i][0]
				queues[i] = queues[i][1:]
				if add(it, cat) {
					have++
					progressed = true
					break
				}
			}
			if have >= count {
				return
			}
		}
		if !progressed {
			return
		}
	}
}

// weakCandidates returns per-topic item queues for weak topics, weakest
// topic first. Within a topic, unseen items come before seen ones.
func (s *Selector) weakCandidates(snap Snapshot) [][]bank.Item {
	type weakTopic struct {
		id    string
		score float64
	}
	var weak []weakTopic
	for id, rec := range snap.Mastery {
		if rec.IsWeak(s.cfg.WeakThreshold, s.cfg.MinConfidence) {
			weak = append(weak, weakTopic{id: id, score: rec.Score})
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].score != weak[j].score {
			return weak[i].score < weak[j].score
		}
		return weak[i].id < weak[j].id
	})

	queues := make([][]bank.Item, 0, len(weak))
	for _, w := range weak {
		items := append([]bank.Item(nil), s.bank.ItemsByTopic(w.id)...)
		sort.SliceStable(items, func(i, j int) bool {
			return !seen(snap, items[i].ID) && seen(snap, items[j].ID)
		})
		queues = append(queues, items)
	}
	return queues
}

// exploreCandidates orders topics by fewest recorded attempts, shuffling
// ties with a per-student, per-day seed.
func (s *Selector) exploreCandidates(snap Snapshot, now time.Time) [][]bank.Item {
	rng := rand.New(rand.NewPCG(seedFor(snap.StudentID, dateKey(now)), 0))

	topics := s.bank.Topics()
	ids := make([]string, 0, len(topics))
	for _, t := range topics {
		if len(s.bank.ItemsByTopic(t.ID)) > 0 {
			ids = append(ids, t.ID)
		}
	}
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	attempts := func(id string) int {
		if rec, ok := snap.Mastery[id]; ok {
			return rec.Attempts
		}
		return 0
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return attempts(ids[i]) < attempts(ids[j])
	})

	queues := make([][]bank.Item, 0, len(ids))
	for _, id := range ids {
		items := append([]bank.Item(nil), s.bank.ItemsByTopic(id)...)
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		sort.SliceStable(items, func(i, j int) bool {
			return !seen(snap, items[i].ID) && seen(snap, items[j].ID)
		})
		queues = append(queues, items)
	}
	return queues
}

// gapCheckTopics is how many of a day's focus topics a gap check covers.
const gapCheckTopics = 2

// GapCheck picks up to n items from the first focus topics of a runway day,
// alternating between topics: items due for review first, most overdue
// first, then the rest of each topic with unseen items ahead of seen ones.
func (s *Selector) GapCheck(snap Snapshot, topics []string, n int, now time.Time) *Quiz {
	q := &Quiz{StudentID: snap.StudentID, Date: dateKey(now), Requested: n}
	if n <= 0 {
		return q
	}
	if len(topics) > gapCheckTopics {
		topics = topics[:gapCheckTopics]
	}

	picked := make(map[string]bool)
	add := func(it bank.Item, cat Category) bool {
		if picked[it.ID] || len(q.Items) >= n {
			return false
		}
		picked[it.ID] = true
		q.Items = append(q.Items, Slot{Item: it, Category: cat})
		return true
	}

	dueByTopic := make(map[string][]bank.Item)
	for _, sched := range s.dueSchedules(snap, now) {
		if it, ok := s.bank.Item(sched.ItemID); ok {
			dueByTopic[it.TopicID] = append(dueByTopic[it.TopicID], it)
		}
	}
	due := make([][]bank.Item, len(topics))
	rest := make([][]bank.Item, len(topics))
	for i, id := range topics {
		due[i] = dueByTopic[id]
		items := s.bank.ItemsByTopic(id)
		sort.SliceStable(items, func(a, b int) bool {
			return !seen(snap, items[a].ID) && seen(snap, items[b].ID)
		})
		rest[i] = items
	}

	s.fillRoundRobin(due, CategoryDue, add, n, len(q.Items))
	if len(q.Items) < n {
		s.fillRoundRobin(rest, CategoryWeak, add, n, len(q.Items))
	}
	q.Short = len(q.Items) < n
	return q
}

// ConceptCheck returns the n easiest items of a topic, for a short
// confidence-building check.
func (s *Selector) ConceptCheck(topicID string, n int) []bank.Item {
	items := append([]bank.Item(nil), s.bank.ItemsByTopic(topicID)...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Difficulty < items[j].Difficulty
	})
	if n < 0 {
		n = 0
	}
	if n < len(items) {
		items = items[:n]
	}
	return items
}

func seen(snap Snapshot, itemID string) bool {
	_, ok := snap.Schedules[itemID]
	return ok
}

func seedFor(studentID, date string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(studentID))
	h.Write([]byte{0})
	h.Write([]byte(date))
	return h.Sum64()
}
