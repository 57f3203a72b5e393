package runway

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/mastery"
)

var now = time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC)

func testBank(t *testing.T) *bank.Bank {
	t.Helper()
	topics := []bank.Topic{
		{ID: "algorithms"}, {ID: "arrays"}, {ID: "c-basics"},
		{ID: "memory"}, {ID: "sql"}, {ID: "web"},
	}
	var items []bank.Item
	for _, tp := range topics {
		items = append(items, bank.Item{ID: tp.ID + "-1", TopicID: tp.ID, Options: []string{"a", "b"}})
	}
	b, err := bank.New(topics, items)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	return b
}

func snapshot(scores map[string]float64) map[string]*mastery.Record {
	out := make(map[string]*mastery.Record, len(scores))
	for id, s := range scores {
		out[id] = &mastery.Record{TopicID: id, Score: s, Confidence: 0.8, Attempts: 4}
	}
	return out
}

func request(examIn time.Duration, hours float64) Request {
	return Request{StudentID: "s1", ExamID: "midterm", ExamDate: now.Add(examIn), HoursPerDay: hours}
}

func TestBuildPlan_InvalidInput(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	tests := []struct {
		name string
		req  Request
	}{
		{"exam now", request(0, 3)},
		{"exam past", request(-48*time.Hour, 3)},
		{"zero hours", request(72*time.Hour, 0)},
		{"negative hours", request(72*time.Hour, -1)},
		{"more than a day", request(72*time.Hour, 25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.BuildPlan(tt.req, nil, now)
			if !errors.Is(err, ErrInvalidExamDate) {
				t.Errorf("err = %v, want ErrInvalidExamDate", err)
			}
			if plan != nil {
				t.Error("partial plan returned")
			}
		})
	}
}

func TestBuildPlan_HorizonAndIntensity(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	plan, err := p.BuildPlan(request(10*24*time.Hour, 3), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if plan.DaysUntilExam != 10 {
		t.Errorf("DaysUntilExam = %d, want 10", plan.DaysUntilExam)
	}
	if len(plan.Days) != 7 {
		t.Fatalf("days = %d, want 7", len(plan.Days))
	}
	want := []Intensity{
		IntensityMedium, IntensityMedium, IntensityMedium, IntensityMedium,
		IntensityHigh, IntensityHigh, IntensityLow,
	}
	for i, d := range plan.Days {
		if d.Intensity != want[i] {
			t.Errorf("day %d intensity = %s, want %s", i+1, d.Intensity, want[i])
		}
		if d.DayNumber != i+1 {
			t.Errorf("DayNumber = %d, want %d", d.DayNumber, i+1)
		}
	}
	last := plan.Days[6].Date
	if got := last.Format("2006-01-02"); got != "2026-10-14" {
		t.Errorf("last day = %s, want 2026-10-14 (eve of exam)", got)
	}
	if plan.Days[6].GapCheckItems != 0 || plan.Days[5].GapCheckItems != 5 || plan.Days[0].GapCheckItems != 3 {
		t.Errorf("gap check items = %d/%d/%d, want 3/5/0",
			plan.Days[0].GapCheckItems, plan.Days[5].GapCheckItems, plan.Days[6].GapCheckItems)
	}
}

func TestBuildPlan_ShortRunwayIncreasesMonotonically(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	tests := []struct {
		examIn time.Duration
		want   []Intensity
	}{
		{10 * time.Hour, []Intensity{IntensityHigh}},
		{30 * time.Hour, []Intensity{IntensityMedium, IntensityHigh}},
		{48 * time.Hour, []Intensity{IntensityMedium, IntensityHigh}},
	}
	for _, tt := range tests {
		plan, err := p.BuildPlan(request(tt.examIn, 2), nil, now)
		if err != nil {
			t.Fatal(err)
		}
		if len(plan.Days) != len(tt.want) {
			t.Fatalf("exam in %v: days = %d, want %d", tt.examIn, len(plan.Days), len(tt.want))
		}
		for i, d := range plan.Days {
			if d.Intensity != tt.want[i] {
				t.Errorf("exam in %v day %d = %s, want %s", tt.examIn, i+1, d.Intensity, tt.want[i])
			}
		}
	}
}

func TestBuildPlan_BlocksSumToBudget(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	snap := snapshot(map[string]float64{"algorithms": 0.1, "arrays": 0.45, "sql": 0.7, "web": 1.0})

	for _, hours := range []float64{1, 1.5, 2, 3, 4.25, 8} {
		for _, examDays := range []int{1, 2, 3, 5, 7, 12} {
			plan, err := p.BuildPlan(request(time.Duration(examDays)*24*time.Hour, hours), snap, now)
			if err != nil {
				t.Fatal(err)
			}
			for _, d := range plan.Days {
				if d.OverflowHours > 0 {
					continue
				}
				if got := d.Hours(); math.Abs(got-hours) > 1e-6 {
					t.Errorf("hours=%v days=%d day %d: sum = %v", hours, examDays, d.DayNumber, got)
				}
				for _, b := range d.TimeBlocks {
					if b.Focus != "" && b.DurationHours > DefaultConfig().MaxTopicShare*hours+1e-6 {
						t.Errorf("hours=%v: topic %s takes %v", hours, b.Focus, b.DurationHours)
					}
				}
			}
		}
	}
}

func TestBuildPlan_EveryNeedyTopicCovered(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	snap := snapshot(map[string]float64{"web": 1.0, "sql": 0.95})

	plan, err := p.BuildPlan(request(3*24*time.Hour, 3), snap, now)
	if err != nil {
		t.Fatal(err)
	}
	covered := make(map[string]bool)
	for _, d := range plan.Days {
		for _, id := range d.FocusTopics {
			covered[id] = true
		}
	}
	for _, id := range []string{"algorithms", "arrays", "c-basics", "memory", "sql"} {
		if !covered[id] {
			t.Errorf("topic %s never scheduled", id)
		}
	}
	if covered["web"] {
		t.Error("fully mastered topic scheduled")
	}
	if len(plan.PriorityTopics) != 5 || plan.PriorityTopics[4] != "sql" {
		t.Errorf("PriorityTopics = %v, want 5 ending with sql", plan.PriorityTopics)
	}
}

func TestAllocate_WeakerTopicsGetMoreTime(t *testing.T) {
	p := NewPlanner(DefaultConfig(), nil)
	focus := []topicScore{{"a", 0.1}, {"b", 0.5}, {"c", 0.8}}
	blocks, overflow := p.allocate(focus, 4, IntensityMedium)
	if overflow != 0 {
		t.Fatalf("overflow = %v, want 0", overflow)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	if !(blocks[0].DurationHours > blocks[1].DurationHours && blocks[1].DurationHours > blocks[2].DurationHours) {
		t.Errorf("durations not weakest-first: %v %v %v",
			blocks[0].DurationHours, blocks[1].DurationHours, blocks[2].DurationHours)
	}
	if blocks[0].Label != "Practice" {
		t.Errorf("Label = %q, want Practice", blocks[0].Label)
	}
}

func TestAllocate_CeilingSpillsToGapCheck(t *testing.T) {
	p := NewPlanner(DefaultConfig(), nil)
	blocks, _ := p.allocate([]topicScore{{"a", 0.2}}, 3, IntensityHigh)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[0].DurationHours != 1.5 {
		t.Errorf("topic block = %v, want 1.5", blocks[0].DurationHours)
	}
	if blocks[1].Label != "Gap check" || math.Abs(blocks[1].DurationHours-1.5) > 1e-9 {
		t.Errorf("gap block = %+v, want 1.5h gap check", blocks[1])
	}
}

func TestBuildPlan_Overflow(t *testing.T) {
	p := NewPlanner(DefaultConfig(), testBank(t))
	plan, err := p.BuildPlan(request(2*24*time.Hour, 1), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Overflow {
		t.Fatal("Overflow = false, want true")
	}
	covered := make(map[string]bool)
	for _, d := range plan.Days {
		if d.OverflowHours <= 0 {
			t.Errorf("day %d OverflowHours = %v, want > 0", d.DayNumber, d.OverflowHours)
		}
		if got := d.Hours() - d.OverflowHours; math.Abs(got-1) > 1e-6 {
			t.Errorf("day %d hours minus overflow = %v, want 1", d.DayNumber, got)
		}
		for _, id := range d.FocusTopics {
			covered[id] = true
		}
	}
	if len(covered) != 6 {
		t.Errorf("covered %d topics, want all 6", len(covered))
	}
}

func TestBuildPlan_FloorAboveCeilingOverflows(t *testing.T) {
	p := NewPlanner(DefaultConfig(), nil)
	plan, err := p.BuildPlan(request(3*24*time.Hour, 0.8), snapshot(map[string]float64{"a": 0.2}), now)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Overflow {
		t.Error("Overflow = false, want true when the floor exceeds the topic ceiling")
	}
	for _, d := range plan.Days {
		if math.Abs(d.OverflowHours-0.1) > 1e-9 {
			t.Errorf("day %d OverflowHours = %v, want 0.1", d.DayNumber, d.OverflowHours)
		}
		if got := d.Hours(); math.Abs(got-0.8) > 1e-9 {
			t.Errorf("day %d hours = %v, want 0.8", d.DayNumber, got)
		}
		if len(d.TimeBlocks) != 2 {
			t.Fatalf("day %d blocks = %+v, want topic and gap check", d.DayNumber, d.TimeBlocks)
		}
		if got := d.TimeBlocks[0].DurationHours; got > 0.4+1e-9 {
			t.Errorf("day %d topic a takes %v of 0.8h, want at most 0.4", d.DayNumber, got)
		}
		if d.TimeBlocks[1].Label != "Gap check" {
			t.Errorf("day %d second block = %q, want Gap check", d.DayNumber, d.TimeBlocks[1].Label)
		}
	}
}

func TestBuildPlan_NoTopicsRests(t *testing.T) {
	p := NewPlanner(DefaultConfig(), nil)
	plan, err := p.BuildPlan(request(4*24*time.Hour, 2), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range plan.Days {
		if d.Intensity != IntensityRest {
			t.Errorf("day %d intensity = %s, want rest", d.DayNumber, d.Intensity)
		}
		if len(d.TimeBlocks) != 1 || d.TimeBlocks[0].DurationHours != 2 {
			t.Errorf("day %d blocks = %+v", d.DayNumber, d.TimeBlocks)
		}
	}
}

func TestBuildPlan_AllMasteredMixedReview(t *testing.T) {
	p := NewPlanner(DefaultConfig(), nil)
	plan, err := p.BuildPlan(request(3*24*time.Hour, 2), snapshot(map[string]float64{"sql": 1}), now)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range plan.Days {
		if len(d.FocusTopics) != 0 || d.TimeBlocks[0].Label != "Mixed review" {
			t.Errorf("day %d = %+v, want single mixed review", d.DayNumber, d)
		}
	}
	if plan.TotalHours != 6 {
		t.Errorf("TotalHours = %v, want 6", plan.TotalHours)
	}
}

func TestPlan_Milestone(t *testing.T) {
	tests := []struct {
		days int
		want bool
	}{
		{7, true}, {6, false}, {3, true}, {1, true}, {10, false},
	}
	for _, tt := range tests {
		p := &Plan{DaysUntilExam: tt.days}
		if _, ok := p.Milestone(); ok != tt.want {
			t.Errorf("Milestone(%d) = %v, want %v", tt.days, ok, tt.want)
		}
	}
}
