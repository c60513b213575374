package harvest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedKind is returned for entity kinds no harvester can handle.
	ErrUnsupportedKind = errors.New("unsupported entity kind")
	// ErrTransactionInProgress is returned when a transaction is started while
	// another is still open.
	ErrTransactionInProgress = errors.New("transaction already in progress")
	// ErrNoTransaction is returned when committing or rolling back without an
	// open transaction.
	ErrNoTransaction = errors.New("no transaction in progress")
	// ErrEntityNotFound is returned by destination stores asked to delete an
	// entity they do not hold.
	ErrEntityNotFound = errors.New("entity not found")
)

// InitializationError is returned when a harvester cannot acquire the backend
// handles for its entity kind. It aborts the whole run.
type InitializationError struct {
	Kind EntityKind
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to init connections and state for %s: %v", e.Kind, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// LoopDetectedError is returned when a full batch is wholly contained within
// a single modification time. Timestamp pagination cannot make progress past
// such a batch, so the run is stopped rather than refetching it forever.
type LoopDetectedError struct {
	Kind         EntityKind
	LastModified time.Time
	BatchSize    int
}

func (e *LoopDetectedError) Error() string {
	return fmt.Sprintf("detected infinite harvesting loop: %s at %s (batch size %d)",
		e.Kind, e.LastModified.UTC().Format(time.RFC3339Nano), e.BatchSize)
}

// PropagationError is returned when the destination cannot locate or remove
// the target of a deletion record.
type PropagationError struct {
	Kind EntityKind
	ID   uuid.UUID
	Err  error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("failed to propagate %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }

// PersistenceError is returned when a cursor cannot be durably read or written.
type PersistenceError struct {
	Source string
	CName  string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("harvest state persistence failed (source=%s, cname=%s): %v", e.Source, e.CName, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsLoopDetected reports whether err is or wraps a LoopDetectedError.
func IsLoopDetected(err error) bool {
	var le *LoopDetectedError
	return errors.As(err, &le)
}

// IsInitialization reports whether err is or wraps an InitializationError.
func IsInitialization(err error) bool {
	var ie *InitializationError
	return errors.As(err, &ie)
}

// IsPropagation reports whether err is or wraps a PropagationError.
func IsPropagation(err error) bool {
	var pe *PropagationError
	return errors.As(err, &pe)
}

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
