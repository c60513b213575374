package memory

import (
	"context"
	"sync"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

var _ domain.StateRepository = (*StateStore)(nil)

type stateKey struct{ source, cname string }

// StateStore is an in-memory StateRepository. Stored states are copies, so
// callers mutating a returned state never affect the store until Put.
type StateStore struct {
	mu      sync.Mutex
	states  map[stateKey]*domain.HarvestState
	history map[stateKey][]*domain.HarvestState
	txn     *TxManager

	// PutErr, when set, is returned by every Put.
	PutErr error
}

// NewStateStore creates an empty store. txn may be nil.
func NewStateStore(txn *TxManager) *StateStore {
	return &StateStore{
		states:  make(map[stateKey]*domain.HarvestState),
		history: make(map[stateKey][]*domain.HarvestState),
		txn:     txn,
	}
}

// Get returns the state for the pair, creating an empty one if absent.
func (s *StateStore) Get(ctx context.Context, source, cname string) (*domain.HarvestState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := stateKey{source, cname}
	st, ok := s.states[k]
	if !ok {
		st = domain.NewHarvestState(source, cname)
		s.states[k] = st
	}
	return st.Clone(), nil
}

// Put upserts a copy of state.
func (s *StateStore) Put(ctx context.Context, state *domain.HarvestState) error {
	if s.PutErr != nil {
		return s.PutErr
	}

	s.mu.Lock()
	k := stateKey{state.Source(), state.CName()}
	prev, existed := s.states[k]
	s.states[k] = state.Clone()
	s.history[k] = append(s.history[k], state.Clone())
	s.mu.Unlock()

	s.txn.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.states[k] = prev
		} else {
			delete(s.states, k)
		}
	})
	return nil
}

// History returns every state written for the pair, in write order,
// including writes later rolled back.
func (s *StateStore) History(source, cname string) []*domain.HarvestState {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[stateKey{source, cname}]
	out := make([]*domain.HarvestState, len(h))
	for i, st := range h {
		out[i] = st.Clone()
	}
	return out
}
