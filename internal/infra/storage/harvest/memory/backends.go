package memory

import (
	"context"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

var _ domain.Backends = (*Backends)(nil)

// Backends wires the in-memory stores into harvest handles. Every kind shares
// the same stores.
type Backends struct {
	Txn          *TxManager
	States       *StateStore
	Source       *DeletedEntitySource
	Observations *ObservationStore
	ReadAccess   *ReadAccessStore

	// AcquireErr, when set, is returned by Acquire.
	AcquireErr error
	closed     int
}

// NewBackends creates empty in-memory backends sharing one TxManager.
func NewBackends() *Backends {
	txn := NewTxManager()
	return &Backends{
		Txn:          txn,
		States:       NewStateStore(txn),
		Source:       NewDeletedEntitySource(),
		Observations: NewObservationStore(txn),
		ReadAccess:   NewReadAccessStore(txn),
	}
}

// Acquire returns handles over the shared stores.
func (b *Backends) Acquire(ctx context.Context, kind domain.EntityKind) (*domain.Handles, error) {
	if b.AcquireErr != nil {
		return nil, b.AcquireErr
	}
	return &domain.Handles{
		Source:      b.Source,
		States:      b.States,
		Txn:         b.Txn,
		ByID:        b.Observations,
		ByTypeAndID: b.ReadAccess,
		Close: func() error {
			b.closed++
			return nil
		},
	}, nil
}

// Closed returns how many acquired handles have been closed.
func (b *Backends) Closed() int { return b.closed }
