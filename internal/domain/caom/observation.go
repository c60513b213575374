// Package caom provides the CAOM-2 entity model shared by the catalogue stores
// and the harvester. Only identity, ownership and modification time matter to
// synchronization; science attributes are carried as opaque values.
package caom

import (
	"time"

	"github.com/google/uuid"
)

// Observation is the root of the CAOM entity tree. It owns its planes.
type Observation struct {
	ID           uuid.UUID `json:"id"`
	Collection   string    `json:"collection"`
	URI          string    `json:"uri"`
	LastModified time.Time `json:"last_modified"`
	Planes       []*Plane  `json:"planes,omitempty"`
}

// Plane belongs to exactly one observation and owns its artifacts.
type Plane struct {
	ID           uuid.UUID   `json:"id"`
	ProductID    string      `json:"product_id"`
	LastModified time.Time   `json:"last_modified"`
	Artifacts    []*Artifact `json:"artifacts,omitempty"`
}

// Artifact belongs to exactly one plane and owns its parts.
type Artifact struct {
	ID           uuid.UUID `json:"id"`
	URI          string    `json:"uri"`
	LastModified time.Time `json:"last_modified"`
	Parts        []*Part   `json:"parts,omitempty"`
}

// Part belongs to exactly one artifact and owns its chunks.
type Part struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	Chunks       []*Chunk  `json:"chunks,omitempty"`
}

// Chunk is a leaf of the entity tree.
type Chunk struct {
	ID           uuid.UUID `json:"id"`
	ProductType  string    `json:"product_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// NodeCounts reports how many distinct entities exist at each level of the
// observation's tree.
type NodeCounts struct {
	Planes, Artifacts, Parts, Chunks int
}

// Counts walks the tree and tallies entities per level.
func (o *Observation) Counts() NodeCounts {
	var c NodeCounts
	for _, p := range o.Planes {
		c.Planes++
		for _, a := range p.Artifacts {
			c.Artifacts++
			for _, pt := range a.Parts {
				c.Parts++
				c.Chunks += len(pt.Chunks)
			}
		}
	}
	return c
}
