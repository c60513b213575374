package postgres

import (
	"context"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/caom2-harvester/internal/domain/caom"
	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

type catalogue struct {
	observations *observationStore
	readAccess   *readAccessStore
	reader       *ObservationReader
}

func setupCatalogueTest(t *testing.T) (context.Context, *catalogue, func()) {
	t.Helper()

	pool, cleanup := storage.SetupTestContainer(t)
	conn := storage.PoolConn{Pool: pool}
	tracer := storage.NoOpTracer()

	return context.Background(), &catalogue{
		observations: NewObservationStore(conn, tracer),
		readAccess:   NewReadAccessStore(conn, tracer),
		reader:       NewObservationReader(conn, tracer),
	}, cleanup
}

func testObservation(collection string) *caom.Observation {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &caom.Observation{
		ID:           uuid.New(),
		Collection:   collection,
		URI:          "caom:" + collection + "/" + uuid.NewString(),
		LastModified: now,
		Planes: []*caom.Plane{
			{
				ID:           uuid.New(),
				ProductID:    "raw",
				LastModified: now,
				Artifacts: []*caom.Artifact{
					{
						ID:           uuid.New(),
						URI:          "ad:" + collection + "/raw.fits",
						LastModified: now,
						Parts: []*caom.Part{
							{
								ID:           uuid.New(),
								Name:         "0",
								LastModified: now,
								Chunks: []*caom.Chunk{
									{ID: uuid.New(), ProductType: "science", LastModified: now},
									{ID: uuid.New(), LastModified: now},
								},
							},
						},
					},
					{ID: uuid.New(), URI: "ad:" + collection + "/preview.png", LastModified: now},
				},
			},
			{ID: uuid.New(), ProductID: "cal", LastModified: now},
		},
	}
}

func TestPGObservationStore_PutAndRead(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	obs := testObservation("TEST")
	require.NoError(t, c.observations.Put(ctx, obs))

	loaded, err := c.reader.GetByID(ctx, obs.ID, MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, obs.ID, loaded.ID)
	assert.Equal(t, obs.URI, loaded.URI)
	assert.True(t, obs.LastModified.Equal(loaded.LastModified))
	assert.Equal(t, obs.Counts(), loaded.Counts())

	chunks := loaded.Planes[0].Artifacts[0].Parts[0].Chunks
	require.Len(t, chunks, 2)
	assert.ElementsMatch(t, []string{"science", ""}, []string{chunks[0].ProductType, chunks[1].ProductType})
}

func TestPGObservationReader_Depth(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	obs := testObservation("TEST")
	require.NoError(t, c.observations.Put(ctx, obs))

	tests := []struct {
		depth int
		want  caom.NodeCounts
	}{
		{depth: 1, want: caom.NodeCounts{}},
		{depth: 2, want: caom.NodeCounts{Planes: 2}},
		{depth: 3, want: caom.NodeCounts{Planes: 2, Artifacts: 2}},
		{depth: 4, want: caom.NodeCounts{Planes: 2, Artifacts: 2, Parts: 1}},
		{depth: 5, want: caom.NodeCounts{Planes: 2, Artifacts: 2, Parts: 1, Chunks: 2}},
	}

	for _, tt := range tests {
		loaded, err := c.reader.GetByID(ctx, obs.ID, tt.depth)
		require.NoError(t, err)
		assert.Equal(t, tt.want, loaded.Counts(), "depth %d", tt.depth)
	}
}

func TestPGObservationReader_ListByCollection(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	first := testObservation("LIST")
	second := testObservation("LIST")
	second.LastModified = first.LastModified.Add(time.Second)
	other := testObservation("OTHER")
	for _, o := range []*caom.Observation{second, first, other} {
		require.NoError(t, c.observations.Put(ctx, o))
	}

	list, err := c.reader.ListByCollection(ctx, "LIST", MaxDepth)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, first.Counts(), list[0].Counts())
}

func TestPGObservationStore_DeleteByID(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	obs := testObservation("TEST")
	require.NoError(t, c.observations.Put(ctx, obs))

	require.NoError(t, c.observations.DeleteByID(ctx, obs.ID))

	exists, err := c.observations.Exists(ctx, obs.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.reader.GetByID(ctx, obs.ID, MaxDepth)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	err = c.observations.DeleteByID(ctx, obs.ID)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestPGObservationStore_PutIsAtomic(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	obs := testObservation("TEST")
	// A duplicate chunk id fails the last insert of the tree.
	part := obs.Planes[0].Artifacts[0].Parts[0]
	part.Chunks[1].ID = part.Chunks[0].ID

	require.Error(t, c.observations.Put(ctx, obs))

	exists, err := c.observations.Exists(ctx, obs.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPGReadAccessStore(t *testing.T) {
	t.Parallel()

	ctx, c, cleanup := setupCatalogueTest(t)
	defer cleanup()

	ra := &caom.ReadAccess{
		ID:           uuid.New(),
		Type:         caom.PlaneDataReadAccess,
		AssetID:      uuid.New(),
		GroupID:      "ivo://example.org/gms?TEST",
		LastModified: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, c.readAccess.Put(ctx, ra))

	got, err := c.readAccess.Get(ctx, caom.PlaneDataReadAccess, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, ra.AssetID, got.AssetID)
	assert.Equal(t, ra.GroupID, got.GroupID)

	// The discriminator selects the table, so the same id is absent elsewhere.
	err = c.readAccess.DeleteByTypeAndID(ctx, caom.PlaneMetaReadAccess, ra.ID)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	require.NoError(t, c.readAccess.DeleteByTypeAndID(ctx, caom.PlaneDataReadAccess, ra.ID))

	_, err = c.readAccess.Get(ctx, caom.PlaneDataReadAccess, ra.ID)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	err = c.readAccess.DeleteByTypeAndID(ctx, caom.ReadAccessType("Bogus"), ra.ID)
	assert.Error(t, err)
}
