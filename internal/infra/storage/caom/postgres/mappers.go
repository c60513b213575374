package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
)

// Column groups, in select order.
const (
	observationColumns = "o.obs_id, o.collection, o.uri, o.last_modified"
	planeColumns       = "p.plane_id, p.product_id, p.last_modified"
	artifactColumns    = "a.artifact_id, a.uri, a.last_modified"
	partColumns        = "pt.part_id, pt.name, pt.last_modified"
	chunkColumns       = "c.chunk_id, c.product_type, c.last_modified"
)

type observationMapper struct{}

func (observationMapper) ColumnCount() int { return 4 }

func (observationMapper) MapRow(row Row, col int) (*caom.Observation, uuid.UUID, bool, error) {
	id, ok, err := uuidAt(row, col)
	if err != nil || !ok {
		return nil, uuid.Nil, false, err
	}
	o := &caom.Observation{ID: id}
	if o.Collection, err = stringAt(row, col+1); err != nil {
		return nil, uuid.Nil, false, err
	}
	if o.URI, err = stringAt(row, col+2); err != nil {
		return nil, uuid.Nil, false, err
	}
	if o.LastModified, err = timeAt(row, col+3); err != nil {
		return nil, uuid.Nil, false, err
	}
	return o, id, true, nil
}

type planeMapper struct{}

func (planeMapper) ColumnCount() int { return 3 }

func (planeMapper) MapRow(row Row, col int) (*caom.Plane, uuid.UUID, bool, error) {
	id, ok, err := uuidAt(row, col)
	if err != nil || !ok {
		return nil, uuid.Nil, false, err
	}
	p := &caom.Plane{ID: id}
	if p.ProductID, err = stringAt(row, col+1); err != nil {
		return nil, uuid.Nil, false, err
	}
	if p.LastModified, err = timeAt(row, col+2); err != nil {
		return nil, uuid.Nil, false, err
	}
	return p, id, true, nil
}

type artifactMapper struct{}

func (artifactMapper) ColumnCount() int { return 3 }

func (artifactMapper) MapRow(row Row, col int) (*caom.Artifact, uuid.UUID, bool, error) {
	id, ok, err := uuidAt(row, col)
	if err != nil || !ok {
		return nil, uuid.Nil, false, err
	}
	a := &caom.Artifact{ID: id}
	if a.URI, err = stringAt(row, col+1); err != nil {
		return nil, uuid.Nil, false, err
	}
	if a.LastModified, err = timeAt(row, col+2); err != nil {
		return nil, uuid.Nil, false, err
	}
	return a, id, true, nil
}

type partMapper struct{}

func (partMapper) ColumnCount() int { return 3 }

func (partMapper) MapRow(row Row, col int) (*caom.Part, uuid.UUID, bool, error) {
	id, ok, err := uuidAt(row, col)
	if err != nil || !ok {
		return nil, uuid.Nil, false, err
	}
	p := &caom.Part{ID: id}
	if p.Name, err = stringAt(row, col+1); err != nil {
		return nil, uuid.Nil, false, err
	}
	if p.LastModified, err = timeAt(row, col+2); err != nil {
		return nil, uuid.Nil, false, err
	}
	return p, id, true, nil
}

type chunkMapper struct{}

func (chunkMapper) ColumnCount() int { return 3 }

func (chunkMapper) MapRow(row Row, col int) (*caom.Chunk, uuid.UUID, bool, error) {
	id, ok, err := uuidAt(row, col)
	if err != nil || !ok {
		return nil, uuid.Nil, false, err
	}
	c := &caom.Chunk{ID: id}
	if c.ProductType, err = stringAt(row, col+1); err != nil {
		return nil, uuid.Nil, false, err
	}
	if c.LastModified, err = timeAt(row, col+2); err != nil {
		return nil, uuid.Nil, false, err
	}
	return c, id, true, nil
}

// uuidAt decodes an identifier column. ok is false for NULL.
func uuidAt(row Row, col int) (uuid.UUID, bool, error) {
	if col >= len(row) {
		return uuid.Nil, false, fmt.Errorf("column %d out of range (%d columns)", col, len(row))
	}
	switch v := row[col].(type) {
	case nil:
		return uuid.Nil, false, nil
	case [16]byte:
		return uuid.UUID(v), true, nil
	case uuid.UUID:
		return v, true, nil
	case pgtype.UUID:
		if !v.Valid {
			return uuid.Nil, false, nil
		}
		return uuid.UUID(v.Bytes), true, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("column %d: %w", col, err)
		}
		return id, true, nil
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("column %d: %w", col, err)
		}
		return id, true, nil
	default:
		return uuid.Nil, false, fmt.Errorf("column %d: unexpected identifier type %T", col, v)
	}
}

// stringAt decodes a text column. NULL decodes as "".
func stringAt(row Row, col int) (string, error) {
	if col >= len(row) {
		return "", fmt.Errorf("column %d out of range (%d columns)", col, len(row))
	}
	switch v := row[col].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case pgtype.Text:
		return v.String, nil
	default:
		return "", fmt.Errorf("column %d: unexpected text type %T", col, v)
	}
}

// timeAt decodes a timestamp column. NULL decodes as the zero time.
func timeAt(row Row, col int) (time.Time, error) {
	if col >= len(row) {
		return time.Time{}, fmt.Errorf("column %d out of range (%d columns)", col, len(row))
	}
	switch v := row[col].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case pgtype.Timestamptz:
		return v.Time, nil
	default:
		return time.Time{}, fmt.Errorf("column %d: unexpected timestamp type %T", col, v)
	}
}
