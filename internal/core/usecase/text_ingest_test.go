package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func longText(seed string) string {
	return strings.Repeat(seed+" ", 20)
}

func TestTextIngestIndexesBothStores(t *testing.T) {
	embedder := &embedderFake{}
	vectors := &vectorStoreFake{}
	lexical := &lexicalIndexFake{}
	uc := NewTextIngestUseCase(chunkerFake{}, embedder, vectors, lexical, 3)

	pages := []domain.Page{
		{Number: 1, Text: longText("acids")},
		{Number: 2, Text: "too short"},
		{Number: 3, Text: longText("bases")},
	}

	report, err := uc.Ingest(context.Background(), "science.pdf", pages)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.Pages != 2 || report.Passages != 4 {
		t.Fatalf("unexpected report %+v", report)
	}
	if vectors.resetSize != 3 {
		t.Fatalf("expected collection reset with vector size 3, got %d", vectors.resetSize)
	}
	if len(vectors.indexed) != 4 || vectors.indexedVec != 4 {
		t.Fatalf("expected 4 indexed passages, got %d/%d", len(vectors.indexed), vectors.indexedVec)
	}
	if len(lexical.replaced) != 4 {
		t.Fatalf("expected lexical index with 4 passages, got %d", len(lexical.replaced))
	}
	if vectors.indexed[0].ID == "" || vectors.indexed[0].ID != lexical.replaced[0].ID {
		t.Fatalf("expected shared passage ids across indexes")
	}
	if lexical.replaced[2].Page != 3 || lexical.replaced[2].ChunkIndex != 0 || lexical.replaced[2].Source != "science.pdf" {
		t.Fatalf("unexpected passage metadata %+v", lexical.replaced[2])
	}
	if len(embedder.batchSizes) != 2 || embedder.batchSizes[0] != 3 || embedder.batchSizes[1] != 1 {
		t.Fatalf("unexpected embed batches %v", embedder.batchSizes)
	}
}

func TestTextIngestRejectsEmptyCorpus(t *testing.T) {
	uc := NewTextIngestUseCase(chunkerFake{}, &embedderFake{}, &vectorStoreFake{}, &lexicalIndexFake{}, 0)

	_, err := uc.Ingest(context.Background(), "science.pdf", []domain.Page{{Number: 1, Text: "short"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTextIngestEmbedFailure(t *testing.T) {
	vectors := &vectorStoreFake{}
	uc := NewTextIngestUseCase(chunkerFake{}, &embedderFake{err: errors.New("ollama down")}, vectors, &lexicalIndexFake{}, 0)

	_, err := uc.Ingest(context.Background(), "science.pdf", []domain.Page{{Number: 1, Text: longText("metals")}})
	if err == nil || !strings.Contains(err.Error(), "embed passages") {
		t.Fatalf("expected embed error, got %v", err)
	}
	if vectors.resetSize != 0 {
		t.Fatalf("collection must not be reset when embedding fails")
	}
}
