package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestEncodeDecodeRequest(t *testing.T) {
	req := domain.IngestRequest{RunID: "run-1", SourceKey: "abc_science.pdf", SkipText: true}
	payload, err := encodeRequest(req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	got, err := decodeRequest(payload)
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if got != req {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestEncodeRequiresSourceKey(t *testing.T) {
	_, err := encodeRequest(domain.IngestRequest{RunID: "run-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDecodeRejectsLegacyPayload(t *testing.T) {
	if _, err := decodeRequest([]byte("doc-123")); err == nil {
		t.Fatalf("expected decode error for raw id payload")
	}
	if _, err := decodeRequest([]byte(`{"run_id":"x"}`)); err == nil {
		t.Fatalf("expected error without source key")
	}
}

func TestWrapPublishError(t *testing.T) {
	err := wrapPublishError(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	err = wrapPublishError(fmt.Errorf("nats publish: %w", nats.ErrMaxPayload))
	if !domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("oversized payload must be invalid input, got %v", err)
	}

	err = wrapPublishError(errors.New("permission denied"))
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if got := classifyNATSError(context.Canceled); got.Retryable || got.RecordFailure {
		t.Fatalf("canceled must not be retried or recorded, got %+v", got)
	}
	if got := classifyNATSError(nats.ErrSlowConsumer); !got.Retryable {
		t.Fatalf("slow consumer should be retried, got %+v", got)
	}
	if got := classifyNATSError(nats.ErrBadSubject); got.Retryable || got.RecordFailure {
		t.Fatalf("bad subject is a caller error, got %+v", got)
	}
}
