package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	MCPPort  string
	LogLevel string

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWaitMS      int
	APIMaxUploadMB             int

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	LLMProvider string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIChatModel  string
	OpenAIEmbedModel string

	QdrantURL        string
	QdrantCollection string

	LexicalIndexPath string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	StoragePath string
	CatalogPath string

	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int

	RAGDenseTopK       int
	RAGSparseTopK      int
	RAGMinContextChars int
	RAGFusionStrategy  string
	RAGFusionRRFK      int
	RAGRerankTopN      int

	TimeoutDense  time.Duration
	TimeoutSparse time.Duration
	TimeoutGraph  time.Duration
	TimeoutLLM    time.Duration
	TimeoutWeb    time.Duration

	WebProviders      []string
	WebMaxResults     int
	WebRateLimitRPS   float64
	WebRateLimitBurst int
	DuckDuckGoURL     string
	DuckDuckGoHTMLURL string
	SurfURL           string
	SurfAPIKey        string

	RetryMaxAttempts        int
	RetryInitialBackoffMS   int
	RetryMaxBackoffMS       int
	BreakerEnabled          bool
	BreakerOpenTimeoutMS    int
	BreakerMinRequests      int
	BreakerFailureRatio     float64
	IngestRunTimeoutMinutes int

	WorkerMetricsPort string
}

// Load reads the environment. When CONFIG_FILE names a YAML file its keys
// (the same names as the env vars) fill in anything the environment leaves unset.
func Load() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return Config{}, err
		}
		src = overlay
	}
	return src.load(), nil
}

func (s source) load() Config {
	return Config{
		APIPort:  s.mustEnv("API_PORT", "8080"),
		MCPPort:  s.mustEnv("MCP_PORT", "8090"),
		LogLevel: s.mustEnv("LOG_LEVEL", "info"),

		APIRateLimitRPS:            s.mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:          s.mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIBackpressureMaxInFlight: s.mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 16),
		APIBackpressureWaitMS:      s.mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxUploadMB:             s.mustEnvInt("API_MAX_UPLOAD_MB", 64),

		PostgresDSN: s.mustEnv("POSTGRES_DSN", ""),

		NATSURL:     s.mustEnv("NATS_URL", ""),
		NATSSubject: s.mustEnv("NATS_SUBJECT", "textbook.ingest"),

		LLMProvider: strings.ToLower(s.mustEnv("LLM_PROVIDER", "ollama")),

		OllamaURL:        s.mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   s.mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: s.mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		OpenAIAPIKey:     s.mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    s.mustEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:  s.mustEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: s.mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		QdrantURL:        s.mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: s.mustEnv("QDRANT_COLLECTION", "textbook_passages"),

		LexicalIndexPath: s.mustEnv("LEXICAL_INDEX_PATH", "./data/lexical/passages.db"),

		Neo4jURI:      s.mustEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     s.mustEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: s.mustEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase: s.mustEnv("NEO4J_DATABASE", "neo4j"),

		StoragePath: s.mustEnv("STORAGE_PATH", "./data/sources"),
		CatalogPath: s.mustEnv("CATALOG_PATH", ""),

		ChunkSize:      s.mustEnvInt("CHUNK_SIZE", 1200),
		ChunkOverlap:   s.mustEnvInt("CHUNK_OVERLAP", 200),
		EmbedBatchSize: s.mustEnvInt("EMBED_BATCH_SIZE", 32),

		RAGDenseTopK:       s.mustEnvInt("RAG_DENSE_TOP_K", 4),
		RAGSparseTopK:      s.mustEnvInt("RAG_SPARSE_TOP_K", 4),
		RAGMinContextChars: s.mustEnvInt("RAG_MIN_CONTEXT_CHARS", 200),
		RAGFusionStrategy:  s.mustEnv("RAG_FUSION_STRATEGY", "concat"),
		RAGFusionRRFK:      s.mustEnvInt("RAG_FUSION_RRF_K", 60),
		RAGRerankTopN:      s.mustEnvInt("RAG_RERANK_TOP_N", 8),

		TimeoutDense:  s.mustEnvDuration("TIMEOUT_DENSE", 10*time.Second),
		TimeoutSparse: s.mustEnvDuration("TIMEOUT_SPARSE", 5*time.Second),
		TimeoutGraph:  s.mustEnvDuration("TIMEOUT_GRAPH", 5*time.Second),
		TimeoutLLM:    s.mustEnvDuration("TIMEOUT_LLM", 60*time.Second),
		TimeoutWeb:    s.mustEnvDuration("TIMEOUT_WEB", 10*time.Second),

		WebProviders:      s.mustEnvList("WEB_PROVIDERS", []string{"duckduckgo", "surf", "placeholder"}),
		WebMaxResults:     s.mustEnvInt("WEB_MAX_RESULTS", 3),
		WebRateLimitRPS:   s.mustEnvFloat("WEB_RATE_LIMIT_RPS", 1),
		WebRateLimitBurst: s.mustEnvInt("WEB_RATE_LIMIT_BURST", 2),
		DuckDuckGoURL:     s.mustEnv("DUCKDUCKGO_URL", ""),
		DuckDuckGoHTMLURL: s.mustEnv("DUCKDUCKGO_HTML_URL", ""),
		SurfURL:           s.mustEnv("SURF_URL", ""),
		SurfAPIKey:        s.mustEnv("SURF_API_KEY", ""),

		RetryMaxAttempts:        s.mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoffMS:   s.mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100),
		RetryMaxBackoffMS:       s.mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400),
		BreakerEnabled:          s.mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		BreakerOpenTimeoutMS:    s.mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000),
		BreakerMinRequests:      s.mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio:     s.mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		IngestRunTimeoutMinutes: s.mustEnvInt("INGEST_RUN_TIMEOUT_MINUTES", 30),

		WorkerMetricsPort: s.mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// source resolves a key from the environment first, then the YAML overlay.
type source map[string]string

func readOverlay(path string) (source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(source, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("750ms") or plain seconds ("10").
func (s source) mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func (s source) mustEnvList(key string, fallback []string) []string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
