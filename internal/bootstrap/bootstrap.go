package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/core/usecase"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/lexical/sqlite"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/llm/openai"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/pdf"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/repository/memory"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/websearch"
)

// executors keep separate retry budgets and breakers for questions and ingestion.
type executors struct {
	query  *resilience.Executor
	ingest *resilience.Executor
}

type App struct {
	Config  config.Config
	Catalog config.Catalog

	Queue   *nats.Queue
	Storage ports.ObjectStorage
	Runs    ports.IngestRunRepository

	Graph    *usecase.GraphIngestUseCase
	IngestUC *usecase.IngestUseCase

	executors executors
	gate      ports.MaintenanceLock
	graph     *neo4j.Store

	closers []func()
}

// New wires the ingestion side and the shared collaborators. The query side
// is built separately by QueryService because it needs populated indexes.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := checkTopology(cfg); err != nil {
		return nil, err
	}
	base := executorConfig(cfg)
	app := &App{
		Config: cfg,
		executors: executors{
			query:  resilience.NewExecutor(base.ForQueries()),
			ingest: resilience.NewExecutor(base.ForIngestion()),
		},
	}
	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.Catalog = catalog

	embedder, _, err := newLanguageModels(cfg, a.executors.ingest)
	if err != nil {
		return err
	}

	graph, err := neo4j.New(ctx, neo4j.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, a.executors.ingest)
	if err != nil {
		return fmt.Errorf("connect graph store: %w", err)
	}
	a.graph = graph
	a.closers = append(a.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = graph.Close(closeCtx)
	})

	a.Graph = usecase.NewGraphIngestUseCase(graph)
	if err := a.Graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	a.Storage = storage

	if err := a.initRuns(ctx); err != nil {
		return err
	}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: a.executors.ingest,
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.Queue = queue
		a.closers = append(a.closers, queue.Close)
	}

	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		HTTPTimeout:        cfg.TimeoutLLM,
		ResilienceExecutor: a.executors.ingest,
	})

	lexicalWriter, err := sqlite.OpenWriter(cfg.LexicalIndexPath)
	if err != nil {
		return fmt.Errorf("open lexical index writer: %w", err)
	}
	a.closers = append(a.closers, func() { _ = lexicalWriter.Close() })

	text := usecase.NewTextIngestUseCase(
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorDB,
		lexicalWriter,
		cfg.EmbedBatchSize,
	)

	// A typed nil *nats.Queue must not reach the use case as a non-nil interface.
	var queue ports.MessageQueue
	if a.Queue != nil {
		queue = a.Queue
	}
	a.IngestUC = usecase.NewIngestUseCase(a.Runs, storage, queue, pdf.NewReader(), a.Graph, text, a.gate)
	return nil
}

// checkTopology rejects a queue-fed worker without Postgres. The in-memory
// ledger and maintenance gate only cover one process, so the worker could
// rewrite the indexes while the api keeps answering.
func checkTopology(cfg config.Config) error {
	if cfg.NATSURL != "" && cfg.PostgresDSN == "" {
		return fmt.Errorf("NATS_URL requires POSTGRES_DSN: queries and ingestion run in separate processes")
	}
	return nil
}

func (a *App) initRuns(ctx context.Context) error {
	if a.Config.PostgresDSN == "" {
		slog.Info("ingest_ledger_in_memory")
		a.Runs = memory.NewRunRepository()
		a.gate = usecase.NewMaintenanceGate()
		return nil
	}

	db, err := postgres.OpenDB(a.Config.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	a.Runs = runs
	a.gate = postgres.NewMaintenanceLock(db)
	return nil
}

// QueryService builds the question answering pipeline. It fails when the
// dense collection or the lexical index has not been built yet.
func (a *App) QueryService(ctx context.Context) (*usecase.AnswerUseCase, error) {
	cfg := a.Config

	embedder, llm, err := newLanguageModels(cfg, a.executors.query)
	if err != nil {
		return nil, err
	}
	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		HTTPTimeout:        cfg.TimeoutDense,
		ResilienceExecutor: a.executors.query,
	})
	if err := vectorDB.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("dense index: %w", err)
	}

	lexical, err := sqlite.Open(ctx, cfg.LexicalIndexPath)
	if err != nil {
		return nil, fmt.Errorf("lexical index: %w", err)
	}
	a.closers = append(a.closers, func() { _ = lexical.Close() })

	web, err := websearch.Build(websearch.Config{
		Providers:         cfg.WebProviders,
		Timeout:           cfg.TimeoutWeb,
		RatePerSecond:     cfg.WebRateLimitRPS,
		Burst:             cfg.WebRateLimitBurst,
		DuckDuckGoURL:     cfg.DuckDuckGoURL,
		DuckDuckGoHTMLURL: cfg.DuckDuckGoHTMLURL,
		SurfURL:           cfg.SurfURL,
		SurfAPIKey:        cfg.SurfAPIKey,
	}, a.executors.query)
	if err != nil {
		return nil, fmt.Errorf("init web search: %w", err)
	}

	facts := usecase.NewFactLookupUseCase(a.graph.WithExecutor(a.executors.query), a.Catalog.Intents, cfg.TimeoutGraph)
	return usecase.NewAnswerUseCase(
		facts,
		embedder,
		vectorDB,
		lexical,
		llm,
		web,
		a.Catalog.Chapters,
		a.gate,
		RetrievalLimits(cfg),
	), nil
}

func RetrievalLimits(cfg config.Config) domain.RetrievalLimits {
	return domain.RetrievalLimits{
		DenseTopK:       cfg.RAGDenseTopK,
		SparseTopK:      cfg.RAGSparseTopK,
		MinContextChars: cfg.RAGMinContextChars,
		Fusion:          domain.FusionStrategy(cfg.RAGFusionStrategy),
		RRFK:            cfg.RAGFusionRRFK,
		RerankTopN:      cfg.RAGRerankTopN,
		WebMaxResults:   cfg.WebMaxResults,
		DenseTimeout:    cfg.TimeoutDense,
		SparseTimeout:   cfg.TimeoutSparse,
		LLMTimeout:      cfg.TimeoutLLM,
		WebTimeout:      cfg.TimeoutWeb,
	}
}

func newLanguageModels(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.Completer, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			HTTPTimeout:        cfg.TimeoutLLM,
			ResilienceExecutor: executor,
		})
		return ollama.NewEmbedder(client), ollama.NewCompleter(client), nil
	case "openai":
		client, err := openai.New(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			ChatModel:  cfg.OpenAIChatModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		}, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai client: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func executorConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	rc.RetryInitialBackoff = time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond
	rc.RetryMaxBackoff = time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond
	rc.BreakerEnabled = cfg.BreakerEnabled
	rc.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenTimeoutMS) * time.Millisecond
	if cfg.BreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.BreakerFailureRatio
	return rc
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
