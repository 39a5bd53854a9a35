// Package memory is the single-process ingestion run ledger used when no
// Postgres DSN is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type RunRepository struct {
	lock sync.Mutex

	mu   sync.RWMutex
	runs map[string]domain.IngestRun
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]domain.IngestRun)}
}

func (r *RunRepository) TryLock(context.Context) (func(), error) {
	if !r.lock.TryLock() {
		return nil, domain.WrapError(domain.ErrIngestInProgress, "ingest lock", errors.New("another run holds the lock"))
	}
	return r.lock.Unlock, nil
}

func (r *RunRepository) Create(_ context.Context, run *domain.IngestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *RunRepository) Finish(_ context.Context, run *domain.IngestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return domain.WrapError(domain.ErrRunNotFound, "finish ingest run", fmt.Errorf("id=%s", run.ID))
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*domain.IngestRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrRunNotFound, "get ingest run", fmt.Errorf("id=%s", id))
	}
	return &run, nil
}
