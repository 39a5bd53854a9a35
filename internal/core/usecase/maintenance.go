package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// MaintenanceGate keeps queries out while an ingestion run rewrites the
// stores. It only covers the current process; deployments that split api and
// worker use the Postgres-backed lock instead.
type MaintenanceGate struct {
	mu sync.RWMutex
}

func NewMaintenanceGate() *MaintenanceGate {
	return &MaintenanceGate{}
}

// TryQuery admits a query unless ingestion holds the gate.
func (g *MaintenanceGate) TryQuery(context.Context) (func(), error) {
	if !g.mu.TryRLock() {
		return nil, domain.WrapError(domain.ErrIngestInProgress, "maintenance gate", errors.New("ingestion holds the stores"))
	}
	return g.mu.RUnlock, nil
}

// Exclusive blocks until in-flight queries finish and holds the gate.
func (g *MaintenanceGate) Exclusive(context.Context) (func(), error) {
	g.mu.Lock()
	return g.mu.Unlock, nil
}
