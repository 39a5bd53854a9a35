package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const (
	minPageTextChars      = 50
	defaultEmbedBatchSize = 32
)

type TextIngestUseCase struct {
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	lexical   ports.LexicalIndexWriter
	batchSize int
}

func NewTextIngestUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	lexical ports.LexicalIndexWriter,
	batchSize int,
) *TextIngestUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &TextIngestUseCase{
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		lexical:   lexical,
		batchSize: batchSize,
	}
}

// Ingest rebuilds the dense and lexical indexes from pages of source.
func (uc *TextIngestUseCase) Ingest(ctx context.Context, source string, pages []domain.Page) (domain.TextIngestReport, error) {
	passages, usedPages := uc.buildPassages(source, pages)
	if len(passages) == 0 {
		return domain.TextIngestReport{}, domain.WrapError(domain.ErrInvalidInput, "text ingest", errors.New("no page has enough text to index"))
	}

	vectors, err := uc.embed(ctx, passages)
	if err != nil {
		return domain.TextIngestReport{}, err
	}

	if err := uc.index(ctx, passages, vectors); err != nil {
		return domain.TextIngestReport{}, err
	}

	return domain.TextIngestReport{Pages: usedPages, Passages: len(passages)}, nil
}

func (uc *TextIngestUseCase) buildPassages(source string, pages []domain.Page) ([]domain.Passage, int) {
	passages := make([]domain.Passage, 0, len(pages)*2)
	usedPages := 0
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if utf8.RuneCountInString(text) <= minPageTextChars {
			continue
		}
		chunks := uc.chunker.Split(text)
		if len(chunks) == 0 {
			continue
		}
		usedPages++
		for i, chunk := range chunks {
			passages = append(passages, domain.Passage{
				ID:         uuid.NewString(),
				Source:     source,
				Page:       page.Number,
				ChunkIndex: i,
				Text:       chunk,
			})
		}
	}
	return passages, usedPages
}

func (uc *TextIngestUseCase) embed(ctx context.Context, passages []domain.Passage) ([][]float32, error) {
	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}

		batch, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages %d-%d: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed passages",
				fmt.Errorf("vectors/passages mismatch: %d/%d", len(batch), len(texts)),
			)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (uc *TextIngestUseCase) index(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index passages", errors.New("empty embedding vectors"))
	}
	if err := uc.vectorDB.Reset(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("reset vector collection: %w", err)
	}
	if err := uc.vectorDB.IndexPassages(ctx, passages, vectors); err != nil {
		return fmt.Errorf("index passages in vector db: %w", err)
	}
	if err := uc.lexical.Replace(ctx, passages); err != nil {
		return fmt.Errorf("replace lexical index: %w", err)
	}
	return nil
}
