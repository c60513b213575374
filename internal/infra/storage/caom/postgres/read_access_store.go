package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

var _ domain.ByTypeAndIDDeleter = (*readAccessStore)(nil)

// readAccessTables maps each discriminator to its table. The tables share a
// shape, so the discriminator is what selects the target.
var readAccessTables = map[caom.ReadAccessType]string{
	caom.ObservationMetaReadAccess: "observation_meta_read_access",
	caom.PlaneMetaReadAccess:       "plane_meta_read_access",
	caom.PlaneDataReadAccess:       "plane_data_read_access",
}

const (
	upsertReadAccessQuery = `INSERT INTO %s (id, asset_id, group_id, last_modified)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET asset_id = EXCLUDED.asset_id,
    group_id = EXCLUDED.group_id,
    last_modified = EXCLUDED.last_modified`
	getReadAccessQuery    = `SELECT id, asset_id, group_id, last_modified FROM %s WHERE id = $1`
	deleteReadAccessQuery = `DELETE FROM %s WHERE id = $1`
)

// readAccessStore stores read-access tuples, one table per discriminator.
type readAccessStore struct {
	conn   storage.Conn
	tracer trace.Tracer
}

// NewReadAccessStore creates a PostgreSQL-backed read-access store.
func NewReadAccessStore(conn storage.Conn, tracer trace.Tracer) *readAccessStore {
	return &readAccessStore{conn: conn, tracer: tracer}
}

func readAccessTable(t caom.ReadAccessType) (string, error) {
	table, ok := readAccessTables[t]
	if !ok {
		return "", t.Validate()
	}
	return table, nil
}

// Put upserts a tuple.
func (s *readAccessStore) Put(ctx context.Context, ra *caom.ReadAccess) error {
	table, err := readAccessTable(ra.Type)
	if err != nil {
		return err
	}
	dbAttrs := storage.Attrs(
		attribute.String("table", table),
		attribute.String("id", ra.ID.String()),
	)
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.put_read_access", dbAttrs, func(ctx context.Context) error {
		_, err := s.conn.Querier().Exec(ctx, fmt.Sprintf(upsertReadAccessQuery, table),
			storage.PGUUID(ra.ID),
			storage.PGUUID(ra.AssetID),
			ra.GroupID,
			storage.PGTime(ra.LastModified),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", table, err)
		}
		return nil
	})
}

// Get returns the tuple of the given type, or harvest.ErrEntityNotFound.
func (s *readAccessStore) Get(ctx context.Context, t caom.ReadAccessType, id uuid.UUID) (*caom.ReadAccess, error) {
	table, err := readAccessTable(t)
	if err != nil {
		return nil, err
	}

	var ra *caom.ReadAccess
	dbAttrs := storage.Attrs(
		attribute.String("table", table),
		attribute.String("id", id.String()),
	)
	err = storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_read_access", dbAttrs, func(ctx context.Context) error {
		var (
			rid, asset pgtype.UUID
			group      string
			lm         pgtype.Timestamptz
		)
		err := s.conn.Querier().QueryRow(ctx, fmt.Sprintf(getReadAccessQuery, table), storage.PGUUID(id)).
			Scan(&rid, &asset, &group, &lm)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEntityNotFound
			}
			return fmt.Errorf("failed to get %s: %w", table, err)
		}
		ra = &caom.ReadAccess{
			ID:           rid.Bytes,
			Type:         t,
			AssetID:      asset.Bytes,
			GroupID:      group,
			LastModified: lm.Time,
		}
		return nil
	})
	return ra, err
}

// DeleteByTypeAndID removes the tuple from the table selected by t. It
// returns harvest.ErrEntityNotFound when the tuple does not exist.
func (s *readAccessStore) DeleteByTypeAndID(ctx context.Context, t caom.ReadAccessType, id uuid.UUID) error {
	table, err := readAccessTable(t)
	if err != nil {
		return err
	}
	dbAttrs := storage.Attrs(
		attribute.String("table", table),
		attribute.String("id", id.String()),
	)
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.delete_read_access", dbAttrs, func(ctx context.Context) error {
		tag, err := s.conn.Querier().Exec(ctx, fmt.Sprintf(deleteReadAccessQuery, table), storage.PGUUID(id))
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s %s: %w", t, id, domain.ErrEntityNotFound)
		}
		return nil
	})
}
