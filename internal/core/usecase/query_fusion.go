package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type fusedCandidate struct {
	passage domain.Passage
	score   float64
}

func fusePassagesRRF(dense, sparse []domain.Passage, rrfK int) []domain.Passage {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))
	addList := func(passages []domain.Passage) {
		for rank, passage := range passages {
			key := passageKey(passage)
			candidate, ok := acc[key]
			if !ok {
				order = append(order, key)
			}
			candidate.passage = preferRicherPassage(candidate.passage, passage)
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addList(dense)
	addList(sparse)

	out := make([]domain.Passage, 0, len(acc))
	for _, key := range order {
		c := acc[key]
		passage := c.passage
		passage.Score = c.score
		out = append(out, passage)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	return out
}

func concatPassages(dense, sparse []domain.Passage) []domain.Passage {
	out := make([]domain.Passage, 0, len(dense)+len(sparse))
	out = append(out, dense...)
	out = append(out, sparse...)
	return out
}

func trimPassages(passages []domain.Passage, limit int) []domain.Passage {
	if limit <= 0 || len(passages) <= limit {
		return passages
	}
	return passages[:limit]
}

// joinPassages renders passages as one context block, skipping blank ones.
func joinPassages(passages []domain.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if text := strings.TrimSpace(p.Text); text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func passageKey(p domain.Passage) string {
	if p.ID != "" {
		return p.ID
	}
	if p.Source != "" && p.ChunkIndex >= 0 {
		return fmt.Sprintf("%s:%d:%d", p.Source, p.Page, p.ChunkIndex)
	}
	return fmt.Sprintf("%s|%d|%s", p.Source, p.Page, p.Text)
}

func preferRicherPassage(current, candidate domain.Passage) domain.Passage {
	if current.ID == "" && current.Source == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Source == "" && candidate.Source != "" {
		current.Source = candidate.Source
	}
	if current.Page == 0 && candidate.Page != 0 {
		current.Page = candidate.Page
	}
	return current
}
