package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	schemaLockKey int64 = 2026021001
	ingestLockKey int64 = 2026021002
)

// RunRepository is the ingestion run ledger. It also owns the session-level
// advisory lock that keeps ingestion single-writer across processes.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id TEXT PRIMARY KEY,
	source_key TEXT NOT NULL,
	status TEXT NOT NULL,
	chapters INTEGER NOT NULL DEFAULT 0,
	concepts INTEGER NOT NULL DEFAULT 0,
	formulas INTEGER NOT NULL DEFAULT 0,
	passages INTEGER NOT NULL DEFAULT 0,
	pages_skipped INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure ingest_runs schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// TryLock takes the ingestion advisory lock on a dedicated connection.
// A lock held by another session yields ErrIngestInProgress.
func (r *RunRepository) TryLock(ctx context.Context) (func(), error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "ingest lock", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, ingestLockKey).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "ingest lock", err)
	}
	if !locked {
		_ = conn.Close()
		return nil, domain.WrapError(domain.ErrIngestInProgress, "ingest lock", errors.New("advisory lock held by another run"))
	}

	return release(conn, `SELECT pg_advisory_unlock($1)`, ingestLockKey), nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.IngestRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingest_runs (id, source_key, status, started_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, started_at = EXCLUDED.started_at, error = NULL, finished_at = NULL
`, run.ID, run.SourceKey, string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("create ingest run: %w", err)
	}
	return nil
}

func (r *RunRepository) Finish(ctx context.Context, run *domain.IngestRun) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE ingest_runs
SET status = $2, chapters = $3, concepts = $4, formulas = $5, passages = $6, pages_skipped = $7, error = $8, finished_at = $9
WHERE id = $1
`, run.ID, string(run.Status), run.Chapters, run.Concepts, run.Formulas, run.Passages, run.PagesSkipped, nullString(run.Error), run.FinishedAt)
	if err != nil {
		return fmt.Errorf("finish ingest run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish ingest run rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "finish ingest run", fmt.Errorf("id=%s", run.ID))
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.IngestRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, source_key, status, chapters, concepts, formulas, passages, pages_skipped, error, started_at, finished_at
FROM ingest_runs
WHERE id = $1
`, id)

	var (
		run        domain.IngestRun
		status     string
		errText    sql.NullString
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&run.ID,
		&run.SourceKey,
		&status,
		&run.Chapters,
		&run.Concepts,
		&run.Formulas,
		&run.Passages,
		&run.PagesSkipped,
		&errText,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get ingest run", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get ingest run: %w", err)
	}
	run.Status = domain.IngestRunStatus(status)
	run.Error = errText.String
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		run.FinishedAt = &t
	}
	run.StartedAt = run.StartedAt.UTC()
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

