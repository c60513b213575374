package harvest

import (
	"time"

	"github.com/google/uuid"
)

// DeletedEntity is a deletion event read from the source catalogue: the
// identifier of the removed entity and the time the removal was recorded.
type DeletedEntity struct {
	id           uuid.UUID
	lastModified time.Time
}

// NewDeletedEntity creates a DeletedEntity.
func NewDeletedEntity(id uuid.UUID, lastModified time.Time) DeletedEntity {
	return DeletedEntity{id: id, lastModified: lastModified}
}

// Getters for DeletedEntity.
func (d DeletedEntity) ID() uuid.UUID           { return d.id }
func (d DeletedEntity) LastModified() time.Time { return d.lastModified }
