package ports

import (
	"context"
	"io"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// QuestionAnswerer is the inbound contract consumed by the HTTP, MCP and CLI adapters.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, allowWeb bool) (*domain.Answer, error)
}

// SourceUploader stores a source PDF and enqueues an ingestion run for it.
type SourceUploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (domain.IngestRequest, error)
}

// IngestRunner executes one ingestion run synchronously.
type IngestRunner interface {
	Run(ctx context.Context, req domain.IngestRequest) (*domain.IngestRun, error)
}

// IngestRunReader is the read model for ingestion run state.
type IngestRunReader interface {
	GetByID(ctx context.Context, id string) (*domain.IngestRun, error)
}
