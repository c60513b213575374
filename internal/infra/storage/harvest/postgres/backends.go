package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
	caompg "github.com/ahrav/caom2-harvester/internal/infra/storage/caom/postgres"
)

var _ domain.Backends = (*Backends)(nil)

// Backends acquires harvest handles over a source and a destination pool.
// Every Acquire gets its own TxManager, so harvesters for different kinds can
// run concurrently against the same destination.
type Backends struct {
	source      *pgxpool.Pool
	destination *pgxpool.Pool
	tracer      trace.Tracer
}

// NewBackends creates Backends reading deletions from source and applying them
// to destination. The cursor table lives in destination.
func NewBackends(source, destination *pgxpool.Pool, tracer trace.Tracer) *Backends {
	return &Backends{source: source, destination: destination, tracer: tracer}
}

// Acquire returns the handles for kind. Close rolls back any transaction left
// open; the pools stay owned by the caller.
func (b *Backends) Acquire(ctx context.Context, kind domain.EntityKind) (*domain.Handles, error) {
	if _, ok := deletedTables[kind]; !ok {
		return nil, domain.ErrUnsupportedKind
	}

	txn := NewTxManager(b.destination, b.tracer)
	return &domain.Handles{
		Source:      NewDeletedEntitySource(storage.PoolConn{Pool: b.source}, b.tracer),
		States:      NewStateStore(txn, b.tracer),
		Txn:         txn,
		ByID:        caompg.NewObservationStore(txn, b.tracer),
		ByTypeAndID: caompg.NewReadAccessStore(txn, b.tracer),
		Close: func() error {
			return txn.Close(context.WithoutCancel(ctx))
		},
	}, nil
}
