package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/caom2-harvester/internal/db"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

var _ domain.StateRepository = (*stateStore)(nil)

// stateStore persists harvest cursors in the harvest_state table. Statements
// run on conn, so writes made while a transaction is open join it.
type stateStore struct {
	conn   storage.Conn
	tracer trace.Tracer
}

// NewStateStore creates a PostgreSQL-backed cursor store.
func NewStateStore(conn storage.Conn, tracer trace.Tracer) *stateStore {
	return &stateStore{conn: conn, tracer: tracer}
}

// Get returns the cursor for (source, cname), inserting an empty one first if
// the pair has never been seen.
func (s *stateStore) Get(ctx context.Context, source, cname string) (*domain.HarvestState, error) {
	var state *domain.HarvestState
	dbAttrs := storage.Attrs(
		attribute.String("source", source),
		attribute.String("cname", cname),
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_harvest_state", dbAttrs, func(ctx context.Context) error {
		q := db.New(s.conn.Querier())

		if err := q.CreateHarvestState(ctx, db.CreateHarvestStateParams{
			ID:     storage.PGUUID(uuid.New()),
			Source: source,
			Cname:  cname,
		}); err != nil {
			return fmt.Errorf("failed to create harvest state: %w", err)
		}

		row, err := q.GetHarvestState(ctx, db.GetHarvestStateParams{Source: source, Cname: cname})
		if err != nil {
			return fmt.Errorf("failed to get harvest state: %w", err)
		}

		state = domain.ReconstructHarvestState(
			uuid.UUID(row.ID.Bytes),
			row.Source,
			row.Cname,
			storage.TimePtr(row.CurLastModified),
			storage.UUIDPtr(row.CurID),
		)
		return nil
	})
	if err != nil {
		return nil, &domain.PersistenceError{Source: source, CName: cname, Err: err}
	}
	return state, nil
}

// Put upserts the cursor. The synthetic id of an existing row is kept.
func (s *stateStore) Put(ctx context.Context, state *domain.HarvestState) error {
	dbAttrs := storage.Attrs(
		attribute.String("source", state.Source()),
		attribute.String("cname", state.CName()),
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.put_harvest_state", dbAttrs, func(ctx context.Context) error {
		q := db.New(s.conn.Querier())
		if err := q.UpsertHarvestState(ctx, db.UpsertHarvestStateParams{
			ID:              storage.PGUUID(state.ID()),
			Source:          state.Source(),
			Cname:           state.CName(),
			CurLastModified: storage.PGTimePtr(state.CurLastModified()),
			CurID:           storage.PGUUIDPtr(state.CurID()),
		}); err != nil {
			return fmt.Errorf("failed to upsert harvest state: %w", err)
		}
		return nil
	})
	if err != nil {
		return &domain.PersistenceError{Source: state.Source(), CName: state.CName(), Err: err}
	}
	return nil
}
