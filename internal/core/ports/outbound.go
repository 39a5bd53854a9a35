package ports

import (
	"context"
	"io"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// GraphStore executes parameterized graph queries and returns result rows.
type GraphStore interface {
	Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the dense passage index.
type VectorStore interface {
	Reset(ctx context.Context, vectorSize int) error
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error)
}

// LexicalIndex is the sparse passage index. Results are ordered by lexical score.
type LexicalIndex interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Passage, error)
}

// LexicalIndexWriter rebuilds the sparse index.
type LexicalIndexWriter interface {
	Replace(ctx context.Context, passages []domain.Passage) error
}

// Completer is the language-model service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// WebSearcher is one web-search provider.
type WebSearcher interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Chunker splits page text into passages.
type Chunker interface {
	Split(text string) []string
}

// PageReader extracts per-page text from a source document.
type PageReader interface {
	ReadPages(ctx context.Context, r io.ReaderAt, size int64) ([]domain.Page, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion requests.
type MessageQueue interface {
	PublishIngestRequest(ctx context.Context, req domain.IngestRequest) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error
}

// MaintenanceLock keeps query serving and ingestion apart. Implementations
// backed by a shared store hold across every api, worker and ragctl process.
// TryQuery never waits: while ingestion holds the lock it fails with
// domain.ErrIngestInProgress. Exclusive waits for in-flight queries to drain.
type MaintenanceLock interface {
	TryQuery(ctx context.Context) (release func(), err error)
	Exclusive(ctx context.Context) (release func(), err error)
}

// IngestRunRepository persists ingestion runs and guards against concurrent runs.
type IngestRunRepository interface {
	TryLock(ctx context.Context) (unlock func(), err error)
	Create(ctx context.Context, run *domain.IngestRun) error
	Finish(ctx context.Context, run *domain.IngestRun) error
	GetByID(ctx context.Context, id string) (*domain.IngestRun, error)
}
