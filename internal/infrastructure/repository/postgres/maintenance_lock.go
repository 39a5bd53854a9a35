package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const maintenanceLockKey int64 = 2026021003

// MaintenanceLock separates query serving from ingestion across every process
// that shares the Postgres database. Queries hold the advisory lock in shared
// mode; an ingestion run holds it exclusively while it rewrites the indexes.
type MaintenanceLock struct {
	db *sql.DB
}

func NewMaintenanceLock(db *sql.DB) *MaintenanceLock {
	return &MaintenanceLock{db: db}
}

// TryQuery never waits. A pending exclusive request also turns queries away,
// so an ingestion run is not starved by a steady stream of questions.
func (l *MaintenanceLock) TryQuery(ctx context.Context) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "maintenance lock", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock_shared($1)`, maintenanceLockKey).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "maintenance lock", err)
	}
	if !locked {
		_ = conn.Close()
		return nil, domain.WrapError(domain.ErrIngestInProgress, "maintenance lock", errors.New("ingestion holds the stores"))
	}
	return release(conn, `SELECT pg_advisory_unlock_shared($1)`, maintenanceLockKey), nil
}

// Exclusive waits until in-flight queries release the lock or ctx ends.
func (l *MaintenanceLock) Exclusive(ctx context.Context) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "maintenance lock", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, maintenanceLockKey); err != nil {
		_ = conn.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "maintenance lock", err)
	}
	return release(conn, `SELECT pg_advisory_unlock($1)`, maintenanceLockKey), nil
}

// release unlocks on the session that took the lock. A connection whose unlock
// failed is discarded, because returning it to the pool would keep the lock.
func release(conn *sql.Conn, unlock string, key int64) func() {
	return func() {
		if _, err := conn.ExecContext(context.Background(), unlock, key); err != nil {
			slog.Warn("advisory_unlock_failed", "key", key, "error", err)
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}
}
