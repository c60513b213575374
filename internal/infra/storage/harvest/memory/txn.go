// Package memory provides in-memory harvest backends for testing, dry runs and
// local development. Stores that share a TxManager participate in its
// transactions: writes made while a transaction is open are undone on
// rollback.
package memory

import (
	"context"
	"sync"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

var _ domain.TransactionManager = (*TxManager)(nil)

// TxManager is an undo-log transaction manager.
type TxManager struct {
	mu   sync.Mutex
	open bool
	undo []func()

	commits   int
	rollbacks int
}

// NewTxManager creates a TxManager with no open transaction.
func NewTxManager() *TxManager { return new(TxManager) }

// StartTransaction opens a transaction.
func (m *TxManager) StartTransaction(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return domain.ErrTransactionInProgress
	}
	m.open = true
	m.undo = m.undo[:0]
	return nil
}

// CommitTransaction keeps every write made since StartTransaction.
func (m *TxManager) CommitTransaction(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return domain.ErrNoTransaction
	}
	m.open = false
	m.undo = m.undo[:0]
	m.commits++
	return nil
}

// RollbackTransaction reverts every write made since StartTransaction, most
// recent first.
func (m *TxManager) RollbackTransaction(ctx context.Context) error {
	m.mu.Lock()
	undo := m.undo
	if !m.open {
		m.mu.Unlock()
		return domain.ErrNoTransaction
	}
	m.open = false
	m.undo = nil
	m.rollbacks++
	m.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

// IsOpen reports whether a transaction is open.
func (m *TxManager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Commits returns the number of committed transactions.
func (m *TxManager) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// Rollbacks returns the number of rolled back transactions.
func (m *TxManager) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

// record registers fn to run if the open transaction is rolled back. Writes
// made outside a transaction are not recorded. A nil manager records nothing.
func (m *TxManager) record(fn func()) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		m.undo = append(m.undo, fn)
	}
}
