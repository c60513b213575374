// Package harvest provides the domain model for incremental deletion
// harvesting: the persisted cursor that records how far a source-to-destination
// sync has progressed, the deletion records read from the source, the per-batch
// progress summary, and the ports the harvester needs from its backends.
package harvest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

// StateRepository persists harvest cursors keyed by (source, cname).
// Callers must serialize access to a given pair; no locking is performed
// beyond what the backing store provides.
type StateRepository interface {
	// Get returns the state for the pair, creating and persisting an empty
	// cursor when none exists. It never returns a nil state without an error.
	Get(ctx context.Context, source, cname string) (*HarvestState, error)

	// Put upserts the state.
	Put(ctx context.Context, state *HarvestState) error
}

// DeletedEntitySource reads deletion records from the source catalogue.
type DeletedEntitySource interface {
	// List returns up to limit records of the given kind with lastModified in
	// [start, end], ascending by (lastModified, id). A nil start or end leaves
	// that side open; a nil limit returns every matching record.
	List(ctx context.Context, kind EntityKind, start, end *time.Time, limit *int) ([]DeletedEntity, error)
}

// TransactionManager brackets one unit of propagation work on the
// destination. At most one transaction is open at a time.
type TransactionManager interface {
	StartTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	IsOpen() bool
}

// ByIDDeleter deletes entities that are unambiguous by identifier alone.
type ByIDDeleter interface {
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// ByTypeAndIDDeleter deletes entities whose table is shared by several
// discriminators.
type ByTypeAndIDDeleter interface {
	DeleteByTypeAndID(ctx context.Context, accessType caom.ReadAccessType, id uuid.UUID) error
}

// Handles are the backend resources a harvester needs for one entity kind.
// Only the deleter matching the kind's DeleteShape must be set.
type Handles struct {
	Source      DeletedEntitySource
	States      StateRepository
	Txn         TransactionManager
	ByID        ByIDDeleter
	ByTypeAndID ByTypeAndIDDeleter

	// Close releases the handles. It may be nil.
	Close func() error
}

// Backends acquires the handles for an entity kind.
type Backends interface {
	Acquire(ctx context.Context, kind EntityKind) (*Handles, error)
}
