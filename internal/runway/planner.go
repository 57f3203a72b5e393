package runway

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/mastery"
)

const epsilon = 1e-9

// Planner builds exam runway plans.
type Planner struct {
	cfg  Config
	bank *bank.Bank
}

// NewPlanner creates a planner. b supplies the topic universe; it may be nil,
// in which case only topics present in the mastery snapshot are planned.
func NewPlanner(cfg Config, b *bank.Bank) *Planner {
	return &Planner{cfg: cfg, bank: b}
}

type topicScore struct {
	id    string
	score float64
}

// BuildPlan produces a full replacement plan for the request. The snapshot
// maps topic IDs to the student's mastery records; topics without a record
// are treated as unlearned.
func (p *Planner) BuildPlan(req Request, snapshot map[string]*mastery.Record, now time.Time) (*Plan, error) {
	hours := req.HoursPerDay
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 || hours > 24 {
		return nil, fmt.Errorf("%w: hours per day %.2f outside (0,24]", ErrInvalidExamDate, hours)
	}
	if !req.ExamDate.After(now) {
		return nil, fmt.Errorf("%w: exam %s is not after %s", ErrInvalidExamDate,
			req.ExamDate.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	daysUntil := int(math.Ceil(req.ExamDate.Sub(now).Hours() / 24))
	n := min(daysUntil, p.cfg.HorizonDays)

	ranked := p.rankTopics(snapshot)
	var needy []topicScore
	for _, t := range ranked {
		if t.score < 1 {
			needy = append(needy, t)
		}
	}

	plan := &Plan{
		StudentID:     req.StudentID,
		ExamID:        req.ExamID,
		ExamDate:      req.ExamDate,
		HoursPerDay:   hours,
		DaysUntilExam: daysUntil,
		GeneratedAt:   now,
	}
	for i := 0; i < len(needy) && i < p.cfg.PriorityTopics; i++ {
		plan.PriorityTopics = append(plan.PriorityTopics, needy[i].id)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first := today.AddDate(0, 0, daysUntil-n)
	intensities := p.intensities(n)
	perDay := p.topicsPerDay(len(needy), n, hours)

	cursor := 0
	for k := 0; k < n; k++ {
		day := DayPlan{
			DayNumber: k + 1,
			Date:      first.AddDate(0, 0, k),
			Intensity: intensities[k],
		}

		switch {
		case len(ranked) == 0:
			day.Intensity = IntensityRest
			day.TimeBlocks = []TimeBlock{{Label: "Open review", DurationHours: hours}}

		case len(needy) == 0:
			day.TimeBlocks = []TimeBlock{{Label: "Mixed review", DurationHours: hours}}

		default:
			focus := make([]topicScore, 0, perDay)
			for j := 0; j < perDay; j++ {
				focus = append(focus, needy[(cursor+j)%len(needy)])
			}
			cursor = (cursor + perDay) % len(needy)
			sort.SliceStable(focus, func(i, j int) bool { return focus[i].score < focus[j].score })

			for _, f := range focus {
				day.FocusTopics = append(day.FocusTopics, f.id)
			}
			day.TimeBlocks, day.OverflowHours = p.allocate(focus, hours, day.Intensity)
		}

		day.GapCheckItems = day.Intensity.GapCheckItems()
		if day.OverflowHours > 0 {
			plan.Overflow = true
		}
		plan.TotalHours += day.Hours()
		plan.Days = append(plan.Days, day)
	}
	return plan, nil
}

// rankTopics merges bank topics with snapshot topics, weakest first.
func (p *Planner) rankTopics(snapshot map[string]*mastery.Record) []topicScore {
	scores := make(map[string]float64)
	if p.bank != nil {
		for _, t := range p.bank.Topics() {
			scores[t.ID] = 0
		}
	}
	for id, rec := range snapshot {
		if rec != nil {
			scores[id] = rec.Score
		}
	}

	ranked := make([]topicScore, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, topicScore{id: id, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked
}

// intensities returns the per-day intensity for an n-day runway. Long
// runways peak and then taper on the final day(s); short ones increase
// monotonically toward the exam.
func (p *Planner) intensities(n int) []Intensity {
	out := make([]Intensity, n)
	if n < p.cfg.PeakDays+p.cfg.TaperDays {
		for k := range out {
			switch n - 1 - k {
			case 0:
				out[k] = IntensityHigh
			case 1:
				out[k] = IntensityMedium
			default:
				out[k] = IntensityLow
			}
		}
		return out
	}
	for k := range out {
		fromEnd := n - 1 - k
		switch {
		case fromEnd < p.cfg.TaperDays:
			out[k] = IntensityLow
		case fromEnd < p.cfg.TaperDays+p.cfg.PeakDays:
			out[k] = IntensityHigh
		default:
			out[k] = IntensityMedium
		}
	}
	return out
}

// topicsPerDay picks how many focus topics each day carries: enough that
// every needy topic is seen at least once across n days, at least two when
// available, and no more than the daily floor allows.
func (p *Planner) topicsPerDay(needy, n int, hours float64) int {
	if needy == 0 {
		return 0
	}
	coverage := (needy + n - 1) / n
	perDay := max(coverage, min(2, needy))
	for perDay > coverage && float64(perDay)*p.cfg.MinBlockHours > hours+epsilon {
		perDay--
	}
	return perDay
}

// allocate splits hours across the focus topics. Each topic gets the floor,
// the remainder is shared in proportion to (1 - score) up to the per-topic
// ceiling, and whatever the ceiling holds back becomes a mixed gap-check
// block. No topic ever exceeds the ceiling: a floor above it is cut to the
// ceiling. The floor time the day could not hold is returned as overflow;
// when the floors alone exceed hours, every topic still gets its block and
// the day runs over budget.
func (p *Planner) allocate(focus []topicScore, hours float64, intensity Intensity) ([]TimeBlock, float64) {
	label := intensity.blockLabel()
	ceiling := p.cfg.MaxTopicShare * hours
	floor := math.Min(p.cfg.MinBlockHours, ceiling)
	shortfall := float64(len(focus)) * (p.cfg.MinBlockHours - floor)

	if need := float64(len(focus)) * floor; need > hours+epsilon {
		blocks := make([]TimeBlock, len(focus))
		for i, f := range focus {
			blocks[i] = TimeBlock{Label: label, Focus: f.id, DurationHours: floor}
		}
		return blocks, need - hours + shortfall
	}

	alloc := make([]float64, len(focus))
	active := make([]int, len(focus))
	for i := range focus {
		alloc[i] = floor
		active[i] = i
	}

	extra := hours - float64(len(focus))*floor
	for extra > epsilon && len(active) > 0 {
		sumW := 0.0
		for _, i := range active {
			sumW += 1 - focus[i].score
		}
		var capped, open []int
		for _, i := range active {
			share := extra * (1 - focus[i].score) / sumW
			if share >= ceiling-alloc[i] {
				capped = append(capped, i)
			} else {
				open = append(open, i)
			}
		}
		if len(capped) == 0 {
			for _, i := range active {
				alloc[i] += extra * (1 - focus[i].score) / sumW
			}
			extra = 0
			break
		}
		for _, i := range capped {
			extra -= ceiling - alloc[i]
			alloc[i] = ceiling
		}
		active = open
	}

	blocks := make([]TimeBlock, 0, len(focus)+1)
	for i, f := range focus {
		blocks = append(blocks, TimeBlock{Label: label, Focus: f.id, DurationHours: alloc[i]})
	}
	if extra > epsilon {
		blocks = append(blocks, TimeBlock{Label: "Gap check", DurationHours: extra})
	}
	return settle(blocks, hours), shortfall
}

// settle folds floating-point drift into the last block so the day sums to
// hours.
func settle(blocks []TimeBlock, hours float64) []TimeBlock {
	sum := 0.0
	for _, b := range blocks[:len(blocks)-1] {
		sum += b.DurationHours
	}
	blocks[len(blocks)-1].DurationHours = hours - sum
	return blocks
}
