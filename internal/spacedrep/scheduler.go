package spacedrep

import (
	"fmt"
	"sort"
	"time"

	"github.com/openta/adaptive/internal/mastery"
)

// ScheduleNext computes the review schedule that follows attempt a. A nil
// prev means this is the item's first attempt. The function is pure: prev
// is not modified and no clock is read.
func ScheduleNext(cfg Config, prev *Schedule, a mastery.Attempt) (*Schedule, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	var next *Schedule
	switch {
	case prev == nil:
		next = &Schedule{
			StudentID:       a.StudentID,
			ItemID:          a.ItemID,
			IntervalDays:    1,
			RepetitionCount: 1,
		}
		if !a.Correct {
			next.Lapses = 1
		}

	case prev.StudentID != a.StudentID || prev.ItemID != a.ItemID:
		return nil, fmt.Errorf("%w: schedule %s/%s does not match attempt %s/%s",
			mastery.ErrInvalidAttempt, prev.StudentID, prev.ItemID, a.StudentID, a.ItemID)

	case a.Correct:
		next = prev.Clone()
		next.RepetitionCount++
		next.IntervalDays = cfg.nextInterval(max(prev.IntervalDays, 1), next.RepetitionCount)

	default:
		// Lapse: due again tomorrow.
		next = prev.Clone()
		next.RepetitionCount = 1
		next.IntervalDays = 1
		next.Lapses++
	}

	next.LastReviewAt = a.Timestamp
	next.DueAt = a.Timestamp.AddDate(0, 0, next.IntervalDays)
	return next, nil
}

// Due returns the schedules due at now, most overdue first; ties are broken
// by item ID.
func Due(schedules []*Schedule, now time.Time) []*Schedule {
	var due []*Schedule
	for _, s := range schedules {
		if s.IsDue(now) {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].ItemID < due[j].ItemID
	})
	return due
}

// DayBucket groups the items falling due on one calendar date.
type DayBucket struct {
	Date    string // YYYY-MM-DD in now's location
	ItemIDs []string
}

// Upcoming groups schedules that fall due within the next days calendar days
// (inclusive of today), in date order.
func Upcoming(schedules []*Schedule, now time.Time, days int) []DayBucket {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, days+1)

	byDate := make(map[string][]string)
	for _, s := range schedules {
		due := s.DueAt.In(now.Location())
		if due.Before(start) || !due.Before(end) {
			continue
		}
		key := due.Format("2006-01-02")
		byDate[key] = append(byDate[key], s.ItemID)
	}

	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DayBucket, 0, len(keys))
	for _, k := range keys {
		ids := byDate[k]
		sort.Strings(ids)
		out = append(out, DayBucket{Date: k, ItemIDs: ids})
	}
	return out
}
