package usecase

import (
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestFusePassagesRRFDeduplicatesByKey(t *testing.T) {
	dense := []domain.Passage{
		{ID: "p-1", Page: 1, Text: "a", Score: 0.9},
		{ID: "p-2", Page: 2, Text: "b", Score: 0.8},
	}
	sparse := []domain.Passage{
		{ID: "p-2", Page: 2, Text: "b", Score: 7.1},
		{ID: "p-3", Page: 3, Text: "c", Score: 3.2},
	}

	fused := fusePassagesRRF(dense, sparse, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused passages, got %d", len(fused))
	}
	if fused[0].ID != "p-2" {
		t.Fatalf("expected p-2 first after RRF fusion, got %s", fused[0].ID)
	}
}

func TestFusePassagesRRFTieBreakStable(t *testing.T) {
	dense := []domain.Passage{{ID: "p-b", Page: 9, Text: "b"}}
	sparse := []domain.Passage{{ID: "p-a", Page: 4, Text: "a"}}

	fused := fusePassagesRRF(dense, sparse, 1000)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused passages, got %d", len(fused))
	}
	if fused[0].ID != "p-a" {
		t.Fatalf("expected tie-break by page, got first=%s", fused[0].ID)
	}
}

func TestConcatPassagesKeepsDenseThenSparseOrder(t *testing.T) {
	dense := []domain.Passage{{Text: "d1"}, {Text: "d2"}}
	sparse := []domain.Passage{{Text: "s1"}, {Text: "  "}, {Text: "s2"}}

	got := joinPassages(concatPassages(dense, sparse))
	if got != "d1\n\nd2\n\ns1\n\ns2" {
		t.Fatalf("unexpected context: %q", got)
	}
}

func TestPassageKeyFallsBackToPosition(t *testing.T) {
	a := domain.Passage{Source: "science.pdf", Page: 3, ChunkIndex: 1, Text: "x"}
	b := domain.Passage{Source: "science.pdf", Page: 3, ChunkIndex: 1, Text: "y"}
	if passageKey(a) != passageKey(b) {
		t.Fatalf("expected equal keys for the same position")
	}
}
