package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/ahrav/caom2-harvester/internal/app/harvest"
	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
	caompg "github.com/ahrav/caom2-harvester/internal/infra/storage/caom/postgres"
	"github.com/ahrav/caom2-harvester/pkg/common/logger"
	"github.com/ahrav/caom2-harvester/pkg/common/timeutil"
)

func TestPGBackends_UnsupportedKind(t *testing.T) {
	b := NewBackends(nil, nil, storage.NoOpTracer())

	_, err := b.Acquire(context.Background(), domain.EntityKind("DeletedBogus"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

// TestPGDeletionHarvester_EndToEnd runs a harvester against one database
// acting as both source and destination.
func TestPGDeletionHarvester_EndToEnd(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	tracer := storage.NoOpTracer()
	observations := caompg.NewObservationStore(storage.PoolConn{Pool: pool}, tracer)

	var deleted []domain.DeletedEntity
	for i := 0; i < 5; i++ {
		obs := &caom.Observation{
			ID:           uuid.New(),
			Collection:   "TEST",
			URI:          "caom:TEST/" + uuid.NewString(),
			LastModified: at(0),
			Planes:       []*caom.Plane{{ID: uuid.New(), ProductID: "raw", LastModified: at(0)}},
		}
		require.NoError(t, observations.Put(ctx, obs))
		deleted = append(deleted, domain.NewDeletedEntity(obs.ID, at(10*(i+1))))
	}
	insertDeleted(t, pool, domain.KindDeletedObservation, deleted...)

	metrics, err := harvest.NewMetrics(metricnoop.NewMeterProvider())
	require.NoError(t, err)

	h := harvest.NewDeletionHarvester(
		harvest.Config{
			Source:    testSource,
			Kind:      domain.KindDeletedObservation,
			BatchSize: intPtr(2),
		},
		NewBackends(pool, pool, tracer),
		logger.Noop(),
		metrics,
		tracer,
		harvest.WithTimeProvider(&timeutil.Mock{CurrentTime: baseTime.Add(time.Minute)}),
	)

	report, err := h.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Ingested)
	assert.Zero(t, report.Failed)

	for _, d := range deleted {
		exists, err := observations.Exists(ctx, d.ID())
		require.NoError(t, err)
		assert.False(t, exists)
	}

	state, err := NewStateStore(storage.PoolConn{Pool: pool}, tracer).
		Get(ctx, testSource, domain.KindDeletedObservation.CName())
	require.NoError(t, err)
	require.True(t, state.HasCursor())
	// The exhausted scan nudges the cursor one millisecond past the last record.
	assert.True(t, at(51).Equal(*state.CurLastModified()))
	assert.Equal(t, deleted[4].ID(), *state.CurID())
}
