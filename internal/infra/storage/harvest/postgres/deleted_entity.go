package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

var _ domain.DeletedEntitySource = (*deletedEntitySource)(nil)

// deletedTables maps each kind to the source table recording its deletions.
var deletedTables = map[domain.EntityKind]string{
	domain.KindDeletedObservation:               "deleted_observation",
	domain.KindDeletedObservationMetaReadAccess: "deleted_observation_meta_read_access",
	domain.KindDeletedPlaneMetaReadAccess:       "deleted_plane_meta_read_access",
	domain.KindDeletedPlaneDataReadAccess:       "deleted_plane_data_read_access",
}

// listDeletedQuery selects deletion records in [start, end]. NULL bounds and a
// NULL limit are open.
const listDeletedQuery = `SELECT id, last_modified FROM %s
WHERE ($1::timestamptz IS NULL OR last_modified >= $1)
  AND ($2::timestamptz IS NULL OR last_modified <= $2)
ORDER BY last_modified, id
LIMIT $3`

// deletedEntitySource reads deletion records from the source catalogue.
type deletedEntitySource struct {
	conn   storage.Conn
	tracer trace.Tracer
}

// NewDeletedEntitySource creates a source reading deletion tables through conn.
func NewDeletedEntitySource(conn storage.Conn, tracer trace.Tracer) *deletedEntitySource {
	return &deletedEntitySource{conn: conn, tracer: tracer}
}

// List returns deletion records of kind ordered by (last_modified, id).
func (s *deletedEntitySource) List(
	ctx context.Context,
	kind domain.EntityKind,
	start, end *time.Time,
	limit *int,
) ([]domain.DeletedEntity, error) {
	table, ok := deletedTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}

	var pgLimit pgtype.Int8
	if limit != nil {
		pgLimit = pgtype.Int8{Int64: int64(*limit), Valid: true}
	}

	var entities []domain.DeletedEntity
	dbAttrs := storage.Attrs(
		attribute.String("kind", kind.String()),
		attribute.String("table", table),
		attribute.Int64("limit", pgLimit.Int64),
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_deleted_entities", dbAttrs, func(ctx context.Context) error {
		rows, err := s.conn.Querier().Query(ctx, fmt.Sprintf(listDeletedQuery, table),
			storage.PGTimePtr(start),
			storage.PGTimePtr(end),
			pgLimit,
		)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}

		entities, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DeletedEntity, error) {
			var (
				id pgtype.UUID
				lm pgtype.Timestamptz
			)
			if err := row.Scan(&id, &lm); err != nil {
				return domain.DeletedEntity{}, err
			}
			return domain.NewDeletedEntity(id.Bytes, lm.Time), nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		return nil
	})
	return entities, err
}
