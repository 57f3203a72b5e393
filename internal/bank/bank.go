package bank

import (
	"errors"
	"sort"
)

// ErrInvalidBank is returned when a question bank document is malformed or
// internally inconsistent.
var ErrInvalidBank = errors.New("invalid question bank")

// Topic is a unit of course content that mastery is tracked against.
type Topic struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
}

// Item is a single multiple-choice practice question. Items are immutable
// once loaded; the engine never authors them.
type Item struct {
	ID          string   `json:"id"`
	TopicID     string   `json:"topic_id"`
	Difficulty  float64  `json:"difficulty"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
	Citation    string   `json:"citation,omitempty"`
}

// IsCorrect reports whether the selected option index is the answer.
func (it Item) IsCorrect(selected int) bool {
	return selected == it.AnswerIndex
}

// Bank is an indexed, read-only question bank.
type Bank struct {
	topics  []Topic
	items   []Item
	topicBy map[string]*Topic
	itemBy  map[string]*Item
	byTopic map[string][]Item
}

// New builds a bank from topics and items. Difficulties are clamped to [0,1].
// Returns ErrInvalidBank on duplicate IDs, dangling topic references, or
// answer indices outside the option list.
func New(topics []Topic, items []Item) (*Bank, error) {
	if err := validate(topics, items); err != nil {
		return nil, err
	}

	b := &Bank{
		topics:  append([]Topic(nil), topics...),
		items:   make([]Item, len(items)),
		topicBy: make(map[string]*Topic, len(topics)),
		itemBy:  make(map[string]*Item, len(items)),
		byTopic: make(map[string][]Item),
	}
	for i, it := range items {
		it.Difficulty = clampDifficulty(it.Difficulty)
		b.items[i] = it
	}

	sort.Slice(b.topics, func(i, j int) bool { return b.topics[i].ID < b.topics[j].ID })
	sort.Slice(b.items, func(i, j int) bool { return b.items[i].ID < b.items[j].ID })

	for i := range b.topics {
		b.topicBy[b.topics[i].ID] = &b.topics[i]
	}
	for i := range b.items {
		it := &b.items[i]
		b.itemBy[it.ID] = it
		b.byTopic[it.TopicID] = append(b.byTopic[it.TopicID], *it)
	}
	return b, nil
}

// Item returns the item with the given ID.
func (b *Bank) Item(id string) (Item, bool) {
	it, ok := b.itemBy[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Topic returns the topic with the given ID.
func (b *Bank) Topic(id string) (Topic, bool) {
	t, ok := b.topicBy[id]
	if !ok {
		return Topic{}, false
	}
	return *t, true
}

// TopicName returns the display name for a topic, falling back to its ID.
func (b *Bank) TopicName(id string) string {
	if t, ok := b.topicBy[id]; ok && t.Name != "" {
		return t.Name
	}
	return id
}

// Topics returns all topics sorted by ID.
func (b *Bank) Topics() []Topic {
	return append([]Topic(nil), b.topics...)
}

// Items returns all items sorted by ID.
func (b *Bank) Items() []Item {
	return append([]Item(nil), b.items...)
}

// ItemsByTopic returns the items of a topic sorted by ID.
func (b *Bank) ItemsByTopic(topicID string) []Item {
	return append([]Item(nil), b.byTopic[topicID]...)
}

// Len returns the number of items in the bank.
func (b *Bank) Len() int {
	return len(b.items)
}

func clampDifficulty(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
