package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

var _ domain.DeletedEntitySource = (*DeletedEntitySource)(nil)

// DeletedEntitySource serves deletion records held in memory.
type DeletedEntitySource struct {
	mu      sync.Mutex
	records map[domain.EntityKind][]domain.DeletedEntity

	// ListErr, when set, is returned by every List.
	ListErr error
}

// NewDeletedEntitySource creates an empty source.
func NewDeletedEntitySource() *DeletedEntitySource {
	return &DeletedEntitySource{records: make(map[domain.EntityKind][]domain.DeletedEntity)}
}

// Add appends records of the given kind.
func (s *DeletedEntitySource) Add(kind domain.EntityKind, records ...domain.DeletedEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[kind] = append(s.records[kind], records...)
}

// List returns records with lastModified in [start, end], ordered by
// (lastModified, id), truncated to limit.
func (s *DeletedEntitySource) List(
	ctx context.Context,
	kind domain.EntityKind,
	start, end *time.Time,
	limit *int,
) ([]domain.DeletedEntity, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.DeletedEntity
	for _, de := range s.records[kind] {
		if start != nil && de.LastModified().Before(*start) {
			continue
		}
		if end != nil && de.LastModified().After(*end) {
			continue
		}
		out = append(out, de)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastModified().Equal(b.LastModified()) {
			return a.LastModified().Before(b.LastModified())
		}
		ai, bi := a.ID(), b.ID()
		return bytes.Compare(ai[:], bi[:]) < 0
	})

	if limit != nil && len(out) > *limit {
		out = out[:*limit]
	}
	return out, nil
}
