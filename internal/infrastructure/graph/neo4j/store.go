package neo4j

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

var writeClause = regexp.MustCompile(`(?i)\b(MERGE|CREATE|SET|DELETE|DETACH|REMOVE|DROP)\b`)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store runs parameterized cypher against one neo4j database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	executor *resilience.Executor
}

// New connects and verifies the server is reachable.
func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, domain.WrapError(domain.ErrTemporary, "neo4j connect", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Store{driver: driver, database: database, executor: executor}, nil
}

// WithExecutor returns a Store sharing the driver but retrying through e.
// Only the original Store should be closed.
func (s *Store) WithExecutor(e *resilience.Executor) *Store {
	clone := *s
	clone.executor = e
	return &clone
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := resilience.Do(ctx, s.executor, "neo4j.run", func(callCtx context.Context) ([]map[string]any, error) {
		return s.run(callCtx, query, params)
	}, classifyNeo4jError)
	if err != nil {
		return nil, resilience.WrapTemporary("neo4j run", err, classifyNeo4jError)
	}
	return rows, nil
}

func (s *Store) run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, record := range records {
			rows = append(rows, record.AsMap())
		}
		return rows, nil
	}

	var (
		result any
		err    error
	)
	if isReadOnly(query) {
		result, err = session.ExecuteRead(ctx, work)
	} else {
		result, err = session.ExecuteWrite(ctx, work)
	}
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}
	return result.([]map[string]any), nil
}

func isReadOnly(query string) bool {
	return !writeClause.MatchString(query)
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if neo4j.IsRetryable(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ClassifyTransport(err)
}
