package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

var (
	_ domain.ByIDDeleter        = (*ObservationStore)(nil)
	_ domain.ByTypeAndIDDeleter = (*ReadAccessStore)(nil)
)

// ObservationStore is an in-memory destination holding observation ids.
type ObservationStore struct {
	mu    sync.Mutex
	ids   map[uuid.UUID]struct{}
	txn   *TxManager
	fails map[uuid.UUID]error
}

// NewObservationStore creates a store holding ids. txn may be nil.
func NewObservationStore(txn *TxManager, ids ...uuid.UUID) *ObservationStore {
	s := &ObservationStore{
		ids:   make(map[uuid.UUID]struct{}, len(ids)),
		txn:   txn,
		fails: make(map[uuid.UUID]error),
	}
	s.Seed(ids...)
	return s
}

// Seed adds ids without recording them in any open transaction.
func (s *ObservationStore) Seed(ids ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// FailOn makes every DeleteByID(id) return err.
func (s *ObservationStore) FailOn(id uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[id] = err
}

// DeleteByID removes the observation.
func (s *ObservationStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.fails[id]; ok {
		return err
	}
	if _, ok := s.ids[id]; !ok {
		return domain.ErrEntityNotFound
	}
	delete(s.ids, id)

	s.txn.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ids[id] = struct{}{}
	})
	return nil
}

// Exists reports whether the observation is present.
func (s *ObservationStore) Exists(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of observations held.
func (s *ObservationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

type accessKey struct {
	t  caom.ReadAccessType
	id uuid.UUID
}

// ReadAccessStore is an in-memory destination for read-access tuples.
type ReadAccessStore struct {
	mu     sync.Mutex
	tuples map[accessKey]struct{}
	txn    *TxManager
}

// NewReadAccessStore creates an empty store. txn may be nil.
func NewReadAccessStore(txn *TxManager) *ReadAccessStore {
	return &ReadAccessStore{tuples: make(map[accessKey]struct{}), txn: txn}
}

// Add stores a tuple of the given type.
func (s *ReadAccessStore) Add(t caom.ReadAccessType, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples[accessKey{t, id}] = struct{}{}
}

// DeleteByTypeAndID removes the tuple.
func (s *ReadAccessStore) DeleteByTypeAndID(ctx context.Context, t caom.ReadAccessType, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := accessKey{t, id}
	if _, ok := s.tuples[k]; !ok {
		return domain.ErrEntityNotFound
	}
	delete(s.tuples, k)

	s.txn.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tuples[k] = struct{}{}
	})
	return nil
}

// Exists reports whether the tuple is present.
func (s *ReadAccessStore) Exists(t caom.ReadAccessType, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tuples[accessKey{t, id}]
	return ok
}
