package postgres

import (
	"context"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
	"github.com/ahrav/caom2-harvester/internal/infra/storage"
)

const testSource = "ivo://example.org/src?ivo://example.org/dst"

func setupStateTest(t *testing.T) (context.Context, *stateStore, *TxManager, func()) {
	t.Helper()

	pool, cleanup := storage.SetupTestContainer(t)
	txn := NewTxManager(pool, storage.NoOpTracer())
	store := NewStateStore(txn, storage.NoOpTracer())

	return context.Background(), store, txn, cleanup
}

func TestPGStateStore_GetCreatesEmptyState(t *testing.T) {
	t.Parallel()

	ctx, store, _, cleanup := setupStateTest(t)
	defer cleanup()

	cname := domain.KindDeletedObservation.CName()
	state, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)
	require.NotNil(t, state)

	assert.Equal(t, testSource, state.Source())
	assert.Equal(t, cname, state.CName())
	assert.NotEqual(t, uuid.Nil, state.ID())
	assert.Nil(t, state.CurLastModified())
	assert.Nil(t, state.CurID())

	again, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)
	assert.Equal(t, state.ID(), again.ID())
}

func TestPGStateStore_PutIDOnly(t *testing.T) {
	t.Parallel()

	ctx, store, _, cleanup := setupStateTest(t)
	defer cleanup()

	cname := domain.KindDeletedObservation.CName()
	state, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)

	id := uuid.New()
	state.SetCurID(id)
	require.NoError(t, store.Put(ctx, state))

	loaded, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)
	require.NotNil(t, loaded.CurID())
	assert.Equal(t, id, *loaded.CurID())
	assert.Nil(t, loaded.CurLastModified())
}

func TestPGStateStore_UpdateKeepsID(t *testing.T) {
	t.Parallel()

	ctx, store, _, cleanup := setupStateTest(t)
	defer cleanup()

	cname := domain.KindDeletedPlaneDataReadAccess.CName()
	state, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)

	first := time.Now().UTC().Truncate(time.Microsecond)
	state.Advance(first, uuid.New())
	require.NoError(t, store.Put(ctx, state))

	second := first.Add(time.Second)
	lastID := uuid.New()
	state.Advance(second, lastID)
	require.NoError(t, store.Put(ctx, state))

	loaded, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)
	assert.Equal(t, state.ID(), loaded.ID())
	require.NotNil(t, loaded.CurLastModified())
	assert.True(t, second.Equal(*loaded.CurLastModified()))
	assert.Equal(t, lastID, *loaded.CurID())
}

func TestPGStateStore_PairsAreIndependent(t *testing.T) {
	t.Parallel()

	ctx, store, _, cleanup := setupStateTest(t)
	defer cleanup()

	a, err := store.Get(ctx, testSource, domain.KindDeletedObservation.CName())
	require.NoError(t, err)
	a.Advance(time.Now().UTC(), uuid.New())
	require.NoError(t, store.Put(ctx, a))

	b, err := store.Get(ctx, testSource, domain.KindDeletedPlaneMetaReadAccess.CName())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.False(t, b.HasCursor())
}

func TestPGStateStore_RollbackDiscardsPut(t *testing.T) {
	t.Parallel()

	ctx, store, txn, cleanup := setupStateTest(t)
	defer cleanup()

	cname := domain.KindDeletedObservation.CName()
	state, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)

	require.NoError(t, txn.StartTransaction(ctx))
	state.Advance(time.Now().UTC(), uuid.New())
	require.NoError(t, store.Put(ctx, state))
	require.NoError(t, txn.RollbackTransaction(ctx))

	loaded, err := store.Get(ctx, testSource, cname)
	require.NoError(t, err)
	assert.False(t, loaded.HasCursor())
}
