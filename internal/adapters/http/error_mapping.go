package httpadapter

import (
	"net/http"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Temporary is checked before ingest-in-progress: a question blocked by a
// running ingestion is retryable, a second concurrent ingestion is a conflict.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrIngestInProgress):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
