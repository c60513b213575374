package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/caom2-harvester/internal/db"
	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

var _ domain.ByIDDeleter = (*observationStore)(nil)

// observationStore writes observation trees to a catalogue. Deleting an
// observation removes its whole tree through ON DELETE CASCADE.
type observationStore struct {
	conn   storage.Conn
	tracer trace.Tracer
}

// NewObservationStore creates a PostgreSQL-backed observation store.
func NewObservationStore(conn storage.Conn, tracer trace.Tracer) *observationStore {
	return &observationStore{conn: conn, tracer: tracer}
}

// Put inserts the observation and every descendant atomically.
func (s *observationStore) Put(ctx context.Context, obs *caom.Observation) error {
	counts := obs.Counts()
	dbAttrs := storage.Attrs(
		attribute.String("obs_id", obs.ID.String()),
		attribute.Int("planes", counts.Planes),
		attribute.Int("chunks", counts.Chunks),
	)
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.put_observation", dbAttrs, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.conn.Querier(), func(tx pgx.Tx) error {
			return insertTree(ctx, db.New(tx), obs)
		})
	})
}

func insertTree(ctx context.Context, q *db.Queries, obs *caom.Observation) error {
	if err := q.InsertObservation(ctx, db.InsertObservationParams{
		ObsID:        storage.PGUUID(obs.ID),
		Collection:   obs.Collection,
		Uri:          obs.URI,
		LastModified: storage.PGTime(obs.LastModified),
	}); err != nil {
		return fmt.Errorf("failed to insert observation %s: %w", obs.ID, err)
	}

	for _, p := range obs.Planes {
		if err := q.InsertPlane(ctx, db.InsertPlaneParams{
			PlaneID:      storage.PGUUID(p.ID),
			ObsID:        storage.PGUUID(obs.ID),
			ProductID:    p.ProductID,
			LastModified: storage.PGTime(p.LastModified),
		}); err != nil {
			return fmt.Errorf("failed to insert plane %s: %w", p.ID, err)
		}

		for _, a := range p.Artifacts {
			if err := q.InsertArtifact(ctx, db.InsertArtifactParams{
				ArtifactID:   storage.PGUUID(a.ID),
				PlaneID:      storage.PGUUID(p.ID),
				Uri:          a.URI,
				LastModified: storage.PGTime(a.LastModified),
			}); err != nil {
				return fmt.Errorf("failed to insert artifact %s: %w", a.ID, err)
			}

			for _, pt := range a.Parts {
				if err := q.InsertPart(ctx, db.InsertPartParams{
					PartID:       storage.PGUUID(pt.ID),
					ArtifactID:   storage.PGUUID(a.ID),
					Name:         pt.Name,
					LastModified: storage.PGTime(pt.LastModified),
				}); err != nil {
					return fmt.Errorf("failed to insert part %s: %w", pt.ID, err)
				}

				for _, c := range pt.Chunks {
					if err := q.InsertChunk(ctx, db.InsertChunkParams{
						ChunkID:      storage.PGUUID(c.ID),
						PartID:       storage.PGUUID(pt.ID),
						ProductType:  pgtype.Text{String: c.ProductType, Valid: c.ProductType != ""},
						LastModified: storage.PGTime(c.LastModified),
					}); err != nil {
						return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
					}
				}
			}
		}
	}
	return nil
}

// DeleteByID removes the observation and its tree. It returns
// harvest.ErrEntityNotFound when no such observation exists.
func (s *observationStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	dbAttrs := storage.Attrs(attribute.String("obs_id", id.String()))
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.delete_observation", dbAttrs, func(ctx context.Context) error {
		n, err := db.New(s.conn.Querier()).DeleteObservation(ctx, storage.PGUUID(id))
		if err != nil {
			return fmt.Errorf("failed to delete observation: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("observation %s: %w", id, domain.ErrEntityNotFound)
		}
		return nil
	})
}

// Exists reports whether the observation is stored.
func (s *observationStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	dbAttrs := storage.Attrs(attribute.String("obs_id", id.String()))
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.observation_exists", dbAttrs, func(ctx context.Context) error {
		var err error
		exists, err = db.New(s.conn.Querier()).ObservationExists(ctx, storage.PGUUID(id))
		if err != nil {
			return fmt.Errorf("failed to check observation: %w", err)
		}
		return nil
	})
	return exists, err
}
