package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

var (
	_ domain.TransactionManager = (*TxManager)(nil)
	_ storage.Conn              = (*TxManager)(nil)
)

// TxManager coordinates one transaction at a time on the destination pool.
// Stores built on it run their statements inside the open transaction, so a
// delete and the cursor write that records it commit or roll back together.
type TxManager struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer

	mu sync.Mutex
	tx pgx.Tx
}

// NewTxManager creates a TxManager over pool.
func NewTxManager(pool *pgxpool.Pool, tracer trace.Tracer) *TxManager {
	return &TxManager{pool: pool, tracer: tracer}
}

// StartTransaction begins a transaction.
func (m *TxManager) StartTransaction(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx != nil {
		return domain.ErrTransactionInProgress
	}
	return storage.ExecuteAndTrace(ctx, m.tracer, "postgres.begin", storage.Attrs(), func(ctx context.Context) error {
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		m.tx = tx
		return nil
	})
}

// CommitTransaction commits the open transaction.
func (m *TxManager) CommitTransaction(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return domain.ErrNoTransaction
	}
	tx := m.tx
	m.tx = nil
	return storage.ExecuteAndTrace(ctx, m.tracer, "postgres.commit", storage.Attrs(), func(ctx context.Context) error {
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// RollbackTransaction rolls back the open transaction.
func (m *TxManager) RollbackTransaction(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return domain.ErrNoTransaction
	}
	tx := m.tx
	m.tx = nil
	return storage.ExecuteAndTrace(ctx, m.tracer, "postgres.rollback", storage.Attrs(), func(ctx context.Context) error {
		if err := tx.Rollback(ctx); err != nil {
			return fmt.Errorf("failed to roll back transaction: %w", err)
		}
		return nil
	})
}

// IsOpen reports whether a transaction is open.
func (m *TxManager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tx != nil
}

// Querier returns the open transaction, or the pool when none is open.
func (m *TxManager) Querier() storage.Querier {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tx != nil {
		return m.tx
	}
	return m.pool
}

// Close rolls back a transaction left open.
func (m *TxManager) Close(ctx context.Context) error {
	if !m.IsOpen() {
		return nil
	}
	return m.RollbackTransaction(ctx)
}
