package retrieval

import (
	"regexp"
	"strings"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

// Intent is the closed set of query intents, each mapped to a primary
// collection to search first.
type Intent string

const (
	IntentHow  Intent = "how"
	IntentWhat Intent = "what"
	IntentWhy  Intent = "why"
)

// PrimaryCollection maps an intent to the collection searched first.
func (i Intent) PrimaryCollection() model.Collection {
	switch i {
	case IntentHow:
		return model.CollectionCodePatterns
	case IntentWhat:
		return model.CollectionConventions
	case IntentWhy:
		return model.CollectionDiscussions
	default:
		return model.CollectionCodePatterns
	}
}

var (
	howPattern  = regexp.MustCompile(`(?i)\bhow\s+(do|should|can|did)\b`)
	whatPattern = regexp.MustCompile(`(?i)\b(what\s+is|what\s+should|best\s+way|convention|rule|guideline)\b`)
	whyPattern  = regexp.MustCompile(`(?i)\b(why|rationale|what\s+was\s+the\s+reason|decided)\b`)
)

// DetectIntent runs a lightweight keyword classifier over the query
// text; no LLM call is required.
func DetectIntent(query string) Intent {
	q := strings.TrimSpace(query)
	switch {
	case whyPattern.MatchString(q):
		return IntentWhy
	case whatPattern.MatchString(q):
		return IntentWhat
	case howPattern.MatchString(q):
		return IntentHow
	default:
		return IntentHow
	}
}

// cascadeOrder returns the three collections in search order, primary
// first, so a miss in the primary collection still falls through to
// the others.
func cascadeOrder(primary model.Collection) []model.Collection {
	order := []model.Collection{primary}
	for _, c := range model.AllCollections {
		if c != primary {
			order = append(order, c)
		}
	}
	return order
}
