package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

// MaxDepth is the number of levels in an observation tree.
const MaxDepth = 5

var (
	depthColumns = []string{observationColumns, planeColumns, artifactColumns, partColumns, chunkColumns}
	depthJoins   = []string{
		"",
		"LEFT JOIN plane p ON p.obs_id = o.obs_id",
		"LEFT JOIN artifact a ON a.plane_id = p.plane_id",
		"LEFT JOIN part pt ON pt.artifact_id = a.artifact_id",
		"LEFT JOIN chunk c ON c.part_id = pt.part_id",
	}
	depthOrder = []string{"o.obs_id", "p.plane_id", "a.artifact_id", "pt.part_id", "c.chunk_id"}
)

// observationQuery builds the joined select for the first depth levels,
// filtered by where.
func observationQuery(depth int, where, orderPrefix string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(depthColumns[:depth], ", "))
	b.WriteString("\nFROM observation o")
	for _, j := range depthJoins[1:depth] {
		b.WriteString("\n")
		b.WriteString(j)
	}
	b.WriteString("\nWHERE ")
	b.WriteString(where)
	b.WriteString("\nORDER BY ")
	if orderPrefix != "" {
		b.WriteString(orderPrefix)
		b.WriteString(", ")
	}
	b.WriteString(strings.Join(depthOrder[:depth], ", "))
	return b.String()
}

// ObservationReader loads observation trees with one joined query per call.
type ObservationReader struct {
	conn      storage.Conn
	extractor *ObservationExtractor
	tracer    trace.Tracer
}

// NewObservationReader creates a reader over conn.
func NewObservationReader(conn storage.Conn, tracer trace.Tracer) *ObservationReader {
	return &ObservationReader{conn: conn, extractor: NewObservationExtractor(), tracer: tracer}
}

func clampDepth(depth int) int {
	if depth < 1 || depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// GetByID loads the observation and its descendants down to depth levels
// (1 = observation only, 5 = down to chunks; out-of-range values load the
// whole tree). It returns harvest.ErrEntityNotFound when there is no such
// observation.
func (r *ObservationReader) GetByID(ctx context.Context, id uuid.UUID, depth int) (*caom.Observation, error) {
	depth = clampDepth(depth)
	var obs *caom.Observation
	dbAttrs := storage.Attrs(
		attribute.String("obs_id", id.String()),
		attribute.Int("depth", depth),
	)
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.get_observation", dbAttrs, func(ctx context.Context) error {
		rows, err := r.conn.Querier().Query(ctx, observationQuery(depth, "o.obs_id = $1", ""), storage.PGUUID(id))
		if err != nil {
			return fmt.Errorf("failed to query observation: %w", err)
		}
		defer rows.Close()

		list, err := r.extractor.Extract(rows)
		if err != nil {
			return fmt.Errorf("failed to extract observation: %w", err)
		}
		if len(list) == 0 {
			return domain.ErrEntityNotFound
		}
		obs = list[0]
		return nil
	})
	return obs, err
}

// ListByCollection loads every observation of a collection, oldest first.
func (r *ObservationReader) ListByCollection(ctx context.Context, collection string, depth int) ([]*caom.Observation, error) {
	depth = clampDepth(depth)
	var list []*caom.Observation
	dbAttrs := storage.Attrs(
		attribute.String("collection", collection),
		attribute.Int("depth", depth),
	)
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.list_observations", dbAttrs, func(ctx context.Context) error {
		query := observationQuery(depth, "o.collection = $1", "o.last_modified")
		rows, err := r.conn.Querier().Query(ctx, query, collection)
		if err != nil {
			return fmt.Errorf("failed to query observations: %w", err)
		}
		defer rows.Close()

		if list, err = r.extractor.Extract(rows); err != nil {
			return fmt.Errorf("failed to extract observations: %w", err)
		}
		return nil
	})
	return list, err
}
