package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

// IngestUseCase stores uploaded textbooks and runs ingestion against them.
type IngestUseCase struct {
	runs    ports.IngestRunRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	reader  ports.PageReader
	graph   *GraphIngestUseCase
	text    *TextIngestUseCase
	gate    ports.MaintenanceLock
}

func NewIngestUseCase(
	runs ports.IngestRunRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	reader ports.PageReader,
	graph *GraphIngestUseCase,
	text *TextIngestUseCase,
	gate ports.MaintenanceLock,
) *IngestUseCase {
	return &IngestUseCase{
		runs:    runs,
		storage: storage,
		queue:   queue,
		reader:  reader,
		graph:   graph,
		text:    text,
		gate:    gate,
	}
}

// Upload saves the source PDF and enqueues an ingestion run for it. Without
// a queue the run starts in the background of the current process.
func (uc *IngestUseCase) Upload(ctx context.Context, filename string, body io.Reader) (domain.IngestRequest, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return domain.IngestRequest{}, fmt.Errorf("save to object storage: %w", err)
	}

	req := domain.IngestRequest{RunID: id, SourceKey: storageKey, EnqueuedAt: time.Now().UTC()}
	if err := uc.runs.Create(ctx, &domain.IngestRun{
		ID:        id,
		SourceKey: storageKey,
		Status:    domain.RunStatusQueued,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		return domain.IngestRequest{}, fmt.Errorf("create ingest run: %w", err)
	}

	if uc.queue == nil {
		go func() {
			if _, err := uc.Run(context.Background(), req); err != nil {
				slog.Error("ingest_run_failed", "run_id", req.RunID, "error", err.Error())
			}
		}()
		return req, nil
	}

	if err := uc.queue.PublishIngestRequest(ctx, req); err != nil {
		return domain.IngestRequest{}, fmt.Errorf("publish ingest request: %w", err)
	}
	return req, nil
}

// Run executes one ingestion run. Only one run proceeds at a time across
// processes; a concurrent caller gets ErrIngestInProgress.
func (uc *IngestUseCase) Run(ctx context.Context, req domain.IngestRequest) (*domain.IngestRun, error) {
	req.SourceKey = strings.TrimSpace(req.SourceKey)
	if req.SourceKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest run", errors.New("source_key is required"))
	}
	if req.SkipGraph && req.SkipText {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest run", errors.New("nothing to ingest"))
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	unlock, err := uc.runs.TryLock(ctx)
	if err != nil {
		err = fmt.Errorf("acquire ingest lock: %w", err)
		uc.failQueued(ctx, req.RunID, err)
		return nil, err
	}
	defer unlock()

	run := &domain.IngestRun{
		ID:        req.RunID,
		SourceKey: req.SourceKey,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := uc.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record ingest run: %w", err)
	}

	runErr := uc.execute(ctx, req, run)

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	run.Status = domain.RunStatusSucceeded
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}

	if err := uc.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		if runErr != nil {
			return run, fmt.Errorf("%w; finish ingest run: %v", runErr, err)
		}
		return run, fmt.Errorf("finish ingest run: %w", err)
	}
	return run, runErr
}

// failQueued closes a queued run that could not start, so the ledger does
// not report it as pending after its message is gone.
func (uc *IngestUseCase) failQueued(ctx context.Context, runID string, cause error) {
	if runID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	run, err := uc.runs.GetByID(ctx, runID)
	if err != nil || run.Status != domain.RunStatusQueued {
		return
	}
	finishedAt := time.Now().UTC()
	run.Status = domain.RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = &finishedAt
	if err := uc.runs.Finish(ctx, run); err != nil {
		slog.Warn("ingest_run_fail_queued_failed", "run_id", runID, "error", err.Error())
	}
}

func (uc *IngestUseCase) execute(ctx context.Context, req domain.IngestRequest, run *domain.IngestRun) error {
	pages, err := uc.readPages(ctx, req.SourceKey)
	if err != nil {
		return err
	}

	if uc.gate != nil {
		release, err := uc.gate.Exclusive(ctx)
		if err != nil {
			return fmt.Errorf("acquire maintenance lock: %w", err)
		}
		defer release()
	}

	if !req.SkipGraph {
		report, err := uc.graph.Ingest(ctx, pages)
		run.Chapters = report.Chapters
		run.Concepts = report.Concepts
		run.Formulas = report.Formulas
		run.PagesSkipped = report.PagesSkipped
		if err != nil {
			return fmt.Errorf("graph ingest: %w", err)
		}
	}

	if !req.SkipText {
		report, err := uc.text.Ingest(ctx, filepath.Base(req.SourceKey), pages)
		if err != nil {
			return fmt.Errorf("text ingest: %w", err)
		}
		run.Passages = report.Passages
	}
	return nil
}

func (uc *IngestUseCase) readPages(ctx context.Context, key string) ([]domain.Page, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", key, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source %q: %w", key, err)
	}

	pages, err := uc.reader.ReadPages(ctx, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pages", errors.New("document has no pages"))
	}
	return pages, nil
}

// GetByID returns the recorded state of one ingestion run.
func (uc *IngestUseCase) GetByID(ctx context.Context, id string) (*domain.IngestRun, error) {
	return uc.runs.GetByID(ctx, id)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "textbook.pdf"
	}
	return base
}
