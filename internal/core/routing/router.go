// Package routing classifies a question into a retrieval route using fixed
// keyword sets.
package routing

import (
	"slices"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Tag names a keyword set.
type Tag string

const (
	TagFact Tag = "fact"
	TagText Tag = "text"
	TagWeb  Tag = "web"
)

// keywords is the decision table. The sets are disjoint and matched as
// substrings of the lower-cased question.
var keywords = map[Tag][]string{
	TagFact: {
		"formula",
		"equation",
		"reaction",
		"chapter",
		"belongs to",
		"related to",
		"relationship",
		"graph",
	},
	TagText: {
		"explain",
		"define",
		"what is",
		"why",
		"how",
		"summary",
		"describe",
	},
	TagWeb: {
		"recent",
		"latest",
		"modern",
		"advancement",
		"current",
	},
}

// Keywords returns a copy of the keyword set for tag.
func Keywords(tag Tag) []string {
	return slices.Clone(keywords[tag])
}

// Tags reports which keyword sets the question hits.
func Tags(question string) map[Tag]bool {
	q := strings.ToLower(question)
	out := make(map[Tag]bool, len(keywords))
	for tag, words := range keywords {
		out[tag] = containsAny(q, words)
	}
	return out
}

// Classify never fails; a question with no keyword hits resolves to TEXT.
func Classify(question string) domain.Route {
	tags := Tags(question)
	switch {
	case tags[TagWeb]:
		return domain.RouteWeb
	case tags[TagFact] && tags[TagText]:
		return domain.RouteHybrid
	case tags[TagFact]:
		return domain.RouteFact
	default:
		return domain.RouteText
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
