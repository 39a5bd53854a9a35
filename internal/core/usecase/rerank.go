package usecase

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	rerankFusedWeight    = 0.60
	rerankCoverageWeight = 0.40
)

// rerankStopwords never count toward query coverage; question words would
// otherwise reward passages from the exercise sections.
var rerankStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "does": {}, "for": {}, "how": {},
	"in": {}, "is": {}, "of": {}, "on": {}, "the": {}, "to": {}, "what": {},
	"when": {}, "which": {}, "why": {},
}

// rerankPassages rescores the first topN fused passages by min-max normalized
// fused score blended with the share of query terms each passage covers.
// Passages past topN keep their fused order behind the head.
func rerankPassages(question string, fused []domain.Passage, topN int) []domain.Passage {
	if len(fused) == 0 {
		return fused
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}

	out := slices.Clone(fused)
	head := out[:topN]
	terms := queryTerms(question)
	normalize := minMaxScaler(head)

	for i := range head {
		head[i].Score = rerankFusedWeight*normalize(head[i].Score) +
			rerankCoverageWeight*coverage(terms, head[i].Text)
	}

	slices.SortStableFunc(head, func(a, b domain.Passage) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Page, b.Page),
			cmp.Compare(a.ChunkIndex, b.ChunkIndex),
		)
	})
	return out
}

func minMaxScaler(passages []domain.Passage) func(float64) float64 {
	lo, hi := passages[0].Score, passages[0].Score
	for _, p := range passages[1:] {
		lo = min(lo, p.Score)
		hi = max(hi, p.Score)
	}
	span := hi - lo
	return func(v float64) float64 {
		if span <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - lo) / span
	}
}

// coverage is the fraction of terms present in text.
func coverage(terms map[string]struct{}, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(terms))
	for _, token := range tokenize(text) {
		if _, ok := terms[token]; ok {
			seen[token] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(terms))
}

func queryTerms(question string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range tokenize(question) {
		if _, stop := rerankStopwords[token]; !stop {
			out[token] = struct{}{}
		}
	}
	return out
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
