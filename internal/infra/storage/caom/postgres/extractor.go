package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

// Row is one flattened result row: the column groups of each joined level,
// root first.
type Row []any

// RowSource is a forward-only cursor over result rows. pgx.Rows satisfies it.
type RowSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

// PartialRowMapper decodes the column group of one tree level.
type PartialRowMapper[T any] interface {
	// ColumnCount is the number of columns in the group.
	ColumnCount() int

	// MapRow decodes the group starting at col. ok is false when the group is
	// NULL, meaning the parent has no entity at this level.
	MapRow(row Row, col int) (node T, id uuid.UUID, ok bool, err error)
}

// ErrMissingRoot is returned for a row whose observation group is NULL.
var ErrMissingRoot = errors.New("row has no observation")

// level tracks the node currently being filled at one depth of the tree.
type level[T any] struct {
	node T
	id   uuid.UUID
	set  bool
}

func (l *level[T]) reset() { *l = level[T]{} }

// advance decodes the group at col into l. started reports that the group
// begins a new node; present is false when the group is NULL, in which case l
// is reset.
func advance[T any](m PartialRowMapper[T], row Row, col int, l *level[T]) (started, present bool, err error) {
	node, id, ok, err := m.MapRow(row, col)
	if err != nil {
		return false, false, err
	}
	if !ok {
		l.reset()
		return false, false, nil
	}
	if l.set && l.id == id {
		return false, true, nil
	}
	*l = level[T]{node: node, id: id, set: true}
	return true, true, nil
}

// ObservationExtractor rebuilds observation trees from a joined result set in
// which every row repeats the columns of its ancestors. Rows must be grouped
// by observation, then plane, artifact and part. A row may stop after any
// column group; the levels it does not carry are left untouched.
type ObservationExtractor struct {
	observations PartialRowMapper[*caom.Observation]
	planes       PartialRowMapper[*caom.Plane]
	artifacts    PartialRowMapper[*caom.Artifact]
	parts        PartialRowMapper[*caom.Part]
	chunks       PartialRowMapper[*caom.Chunk]
}

// NewObservationExtractor creates an extractor over the default column layout.
func NewObservationExtractor() *ObservationExtractor {
	return &ObservationExtractor{
		observations: observationMapper{},
		planes:       planeMapper{},
		artifacts:    artifactMapper{},
		parts:        partMapper{},
		chunks:       chunkMapper{},
	}
}

// Extract consumes rows and returns the observations in the order their first
// row appeared, with every subtree attached.
func (e *ObservationExtractor) Extract(rows RowSource) ([]*caom.Observation, error) {
	var (
		out []*caom.Observation

		obs      level[*caom.Observation]
		plane    level[*caom.Plane]
		artifact level[*caom.Artifact]
		part     level[*caom.Part]
		chunk    level[*caom.Chunk]
	)

	for n := 0; rows.Next(); n++ {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", n, err)
		}
		row := Row(values)
		ncol := len(row)

		col := 0
		started, present, err := advance(e.observations, row, col, &obs)
		if err != nil {
			return nil, fmt.Errorf("row %d observation: %w", n, err)
		}
		if !present {
			return nil, fmt.Errorf("row %d: %w", n, ErrMissingRoot)
		}
		if started {
			out = append(out, obs.node)
			plane.reset()
			artifact.reset()
			part.reset()
			chunk.reset()
		}
		col += e.observations.ColumnCount()

		if ncol <= col {
			continue
		}
		started, present, err = advance(e.planes, row, col, &plane)
		if err != nil {
			return nil, fmt.Errorf("row %d plane: %w", n, err)
		}
		if !present {
			artifact.reset()
			part.reset()
			chunk.reset()
			continue
		}
		if started {
			obs.node.Planes = append(obs.node.Planes, plane.node)
			artifact.reset()
			part.reset()
			chunk.reset()
		}
		col += e.planes.ColumnCount()

		if ncol <= col {
			continue
		}
		started, present, err = advance(e.artifacts, row, col, &artifact)
		if err != nil {
			return nil, fmt.Errorf("row %d artifact: %w", n, err)
		}
		if !present {
			part.reset()
			chunk.reset()
			continue
		}
		if started {
			plane.node.Artifacts = append(plane.node.Artifacts, artifact.node)
			part.reset()
			chunk.reset()
		}
		col += e.artifacts.ColumnCount()

		if ncol <= col {
			continue
		}
		started, present, err = advance(e.parts, row, col, &part)
		if err != nil {
			return nil, fmt.Errorf("row %d part: %w", n, err)
		}
		if !present {
			chunk.reset()
			continue
		}
		if started {
			artifact.node.Parts = append(artifact.node.Parts, part.node)
			chunk.reset()
		}
		col += e.parts.ColumnCount()

		if ncol <= col {
			continue
		}
		started, present, err = advance(e.chunks, row, col, &chunk)
		if err != nil {
			return nil, fmt.Errorf("row %d chunk: %w", n, err)
		}
		if present && started {
			part.node.Chunks = append(part.node.Chunks, chunk.node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return out, nil
}
