package extract

import "github.com/kirillkom/textbook-rag/internal/core/domain"

// BuildPageFacts runs every extractor over one page attributed to chapter.
func BuildPageFacts(chapter domain.Chapter, pageText string) domain.PageFacts {
	return domain.PageFacts{
		Chapter:   chapter,
		Concepts:  Concepts(pageText),
		Formulas:  Formulas(pageText),
		Reactions: Reactions(pageText),
	}
}

type orderedSet struct {
	index map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	return s.items
}
