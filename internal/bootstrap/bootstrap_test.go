package bootstrap

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestRetrievalLimitsFromConfig(t *testing.T) {
	cfg := config.Config{
		RAGDenseTopK:       6,
		RAGSparseTopK:      5,
		RAGMinContextChars: 300,
		RAGFusionStrategy:  "rrf",
		RAGFusionRRFK:      30,
		RAGRerankTopN:      4,
		WebMaxResults:      2,
		TimeoutDense:       time.Second,
		TimeoutSparse:      2 * time.Second,
		TimeoutLLM:         3 * time.Second,
		TimeoutWeb:         4 * time.Second,
	}

	got := RetrievalLimits(cfg)
	want := domain.RetrievalLimits{
		DenseTopK:       6,
		SparseTopK:      5,
		MinContextChars: 300,
		Fusion:          domain.FusionRRF,
		RRFK:            30,
		RerankTopN:      4,
		WebMaxResults:   2,
		DenseTimeout:    time.Second,
		SparseTimeout:   2 * time.Second,
		LLMTimeout:      3 * time.Second,
		WebTimeout:      4 * time.Second,
	}
	if got != want {
		t.Fatalf("RetrievalLimits() = %+v, want %+v", got, want)
	}
}

func TestExecutorConfigFromConfig(t *testing.T) {
	rc := executorConfig(config.Config{
		RetryMaxAttempts:      5,
		RetryInitialBackoffMS: 50,
		RetryMaxBackoffMS:     800,
		BreakerEnabled:        true,
		BreakerOpenTimeoutMS:  1000,
		BreakerMinRequests:    7,
		BreakerFailureRatio:   0.25,
	})
	if rc.RetryMaxAttempts != 5 || rc.RetryInitialBackoff != 50*time.Millisecond || rc.RetryMaxBackoff != 800*time.Millisecond {
		t.Fatalf("unexpected retry settings %+v", rc)
	}
	if !rc.BreakerEnabled || rc.BreakerOpenTimeout != time.Second || rc.BreakerMinRequests != 7 || rc.BreakerFailureRatio != 0.25 {
		t.Fatalf("unexpected breaker settings %+v", rc)
	}
}

func TestNewLanguageModels(t *testing.T) {
	embedder, llm, err := newLanguageModels(config.Config{LLMProvider: "ollama", OllamaURL: "http://localhost:11434"}, nil)
	if err != nil || embedder == nil || llm == nil {
		t.Fatalf("ollama provider: embedder=%v llm=%v err=%v", embedder, llm, err)
	}

	if _, _, err := newLanguageModels(config.Config{LLMProvider: "openai"}, nil); err == nil {
		t.Fatalf("expected openai without api key to fail")
	}

	embedder, llm, err = newLanguageModels(config.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test"}, nil)
	if err != nil || embedder == nil || llm == nil {
		t.Fatalf("openai provider: err=%v", err)
	}

	if _, _, err := newLanguageModels(config.Config{LLMProvider: "anthropic"}, nil); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}

func TestQueueTopologyRequiresPostgres(t *testing.T) {
	if err := checkTopology(config.Config{}); err != nil {
		t.Fatalf("single-process setup rejected: %v", err)
	}
	if err := checkTopology(config.Config{NATSURL: "nats://nats:4222", PostgresDSN: "postgres://rag@db/rag"}); err != nil {
		t.Fatalf("queue with postgres rejected: %v", err)
	}

	_, err := New(context.Background(), config.Config{NATSURL: "nats://nats:4222"})
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected worker topology without postgres rejected, got %v", err)
	}
}
