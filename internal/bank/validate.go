package bank

import (
	"fmt"
	"strings"
)

// validate performs the structural checks the JSON schema cannot express.
// Returns a combined error describing all problems found, or nil if valid.
func validate(topics []Topic, items []Item) error {
	var errs []string

	topicSet := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t.ID == "" {
			errs = append(errs, "topic with empty ID")
			continue
		}
		if topicSet[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate topic ID: %q", t.ID))
		}
		topicSet[t.ID] = true
	}

	itemSet := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "" {
			errs = append(errs, "item with empty ID")
			continue
		}
		if itemSet[it.ID] {
			errs = append(errs, fmt.Sprintf("duplicate item ID: %q", it.ID))
		}
		itemSet[it.ID] = true

		if !topicSet[it.TopicID] {
			errs = append(errs, fmt.Sprintf("item %q references nonexistent topic %q", it.ID, it.TopicID))
		}
		if it.AnswerIndex < 0 || it.AnswerIndex >= len(it.Options) {
			errs = append(errs, fmt.Sprintf("item %q answer index %d outside %d options", it.ID, it.AnswerIndex, len(it.Options)))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidBank, strings.Join(errs, "\n  "))
	}
	return nil
}
