package mastery

import "sort"

// Thresholds classify records into weak / strong buckets.
type Thresholds struct {
	Weak          float64
	MinConfidence float64
	Strong        float64
}

// Summary is the aggregate view of a student's mastery map.
type Summary struct {
	Weak            []string // topic IDs, weakest first
	Strong          []string // topic IDs, strongest first
	OverallProgress float64  // mean score across attempted topics
}

// Summarize aggregates a student's records.
func Summarize(records []*Record, th Thresholds) Summary {
	var weak, strong []*Record
	total := 0.0
	counted := 0

	for _, r := range records {
		if r.Attempts == 0 {
			continue
		}
		total += r.Score
		counted++
		switch r.Classify(th) {
		case StatusWeak:
			weak = append(weak, r)
		case StatusStrong:
			strong = append(strong, r)
		}
	}

	sort.Slice(weak, func(i, j int) bool {
		if weak[i].Score != weak[j].Score {
			return weak[i].Score < weak[j].Score
		}
		return weak[i].TopicID < weak[j].TopicID
	})
	sort.Slice(strong, func(i, j int) bool {
		if strong[i].Score != strong[j].Score {
			return strong[i].Score > strong[j].Score
		}
		return strong[i].TopicID < strong[j].TopicID
	})

	s := Summary{}
	for _, r := range weak {
		s.Weak = append(s.Weak, r.TopicID)
	}
	for _, r := range strong {
		s.Strong = append(s.Strong, r.TopicID)
	}
	if counted > 0 {
		s.OverallProgress = total / float64(counted)
	}
	return s
}
