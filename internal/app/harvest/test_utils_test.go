package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage/harvest/memory"
	"github.com/ahrav/caom2-harvester/pkg/common/logger"
	"github.com/ahrav/caom2-harvester/pkg/common/timeutil"
)

const testSource = "ivo://example.org/src?ivo://example.org/dst"

var baseTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// at returns baseTime offset by ms milliseconds.
func at(ms int) time.Time { return baseTime.Add(time.Duration(ms) * time.Millisecond) }

// idN returns a deterministic id that sorts by n.
func idN(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

func intPtr(i int) *int { return &i }

// mockByIDDeleter implements domain.ByIDDeleter for testing.
type mockByIDDeleter struct{ mock.Mock }

func (m *mockByIDDeleter) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// mockByTypeAndIDDeleter implements domain.ByTypeAndIDDeleter for testing.
type mockByTypeAndIDDeleter struct{ mock.Mock }

func (m *mockByTypeAndIDDeleter) DeleteByTypeAndID(ctx context.Context, t caom.ReadAccessType, id uuid.UUID) error {
	return m.Called(ctx, t, id).Error(0)
}

// mockHarvestMetrics implements HarvestMetrics for testing.
type mockHarvestMetrics struct{ mock.Mock }

func (m *mockHarvestMetrics) ObserveBatch(ctx context.Context, kind domain.EntityKind, p domain.Progress, d time.Duration) {
	m.Called(ctx, kind, p, d)
}

func (m *mockHarvestMetrics) IncLoopDetected(ctx context.Context, kind domain.EntityKind) {
	m.Called(ctx, kind)
}

// fixture bundles in-memory backends with a harvester under test.
type fixture struct {
	backends *memory.Backends
	clock    *timeutil.Mock
}

func newFixture() *fixture {
	return &fixture{
		backends: memory.NewBackends(),
		clock:    &timeutil.Mock{CurrentTime: baseTime.Add(time.Minute)},
	}
}

// addDeleted registers deletion records for kind and, for observations,
// seeds the destination with the matching ids.
func (f *fixture) addDeleted(kind domain.EntityKind, records ...domain.DeletedEntity) {
	f.backends.Source.Add(kind, records...)
	for _, r := range records {
		if t, ok := kind.ReadAccessType(); ok {
			f.backends.ReadAccess.Add(t, r.ID())
			continue
		}
		f.backends.Observations.Seed(r.ID())
	}
}

func (f *fixture) harvester(t *testing.T, cfg Config) *DeletionHarvester {
	t.Helper()

	if cfg.Source == "" {
		cfg.Source = testSource
	}
	if cfg.Kind == "" {
		cfg.Kind = domain.KindDeletedObservation
	}
	return newTestHarvester(t, cfg, f.backends, f.clock)
}

func (f *fixture) cursor(t *testing.T, kind domain.EntityKind) *domain.HarvestState {
	t.Helper()
	st, err := f.backends.States.Get(context.Background(), testSource, kind.CName())
	require.NoError(t, err)
	return st
}

// mockDeletedEntitySource implements domain.DeletedEntitySource for testing.
type mockDeletedEntitySource struct{ mock.Mock }

func (m *mockDeletedEntitySource) List(
	ctx context.Context,
	kind domain.EntityKind,
	start, end *time.Time,
	limit *int,
) ([]domain.DeletedEntity, error) {
	args := m.Called(ctx, kind, start, end, limit)
	if list := args.Get(0); list != nil {
		return list.([]domain.DeletedEntity), args.Error(1)
	}
	return nil, args.Error(1)
}

// staticBackends hands out a fixed set of handles.
type staticBackends struct{ handles *domain.Handles }

func (b staticBackends) Acquire(context.Context, domain.EntityKind) (*domain.Handles, error) {
	return b.handles, nil
}

func newTestHarvester(t *testing.T, cfg Config, backends domain.Backends, clock timeutil.Provider) *DeletionHarvester {
	t.Helper()

	metrics, err := NewMetrics(metricnoop.NewMeterProvider())
	require.NoError(t, err)

	return NewDeletionHarvester(
		cfg,
		backends,
		logger.Noop(),
		metrics,
		noop.NewTracerProvider().Tracer("test"),
		WithTimeProvider(clock),
	)
}
