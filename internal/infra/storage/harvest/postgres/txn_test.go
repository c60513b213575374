package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/caom2-harvester/internal/domain/harvest"
)

func TestPGTxManager_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx, _, txn, cleanup := setupStateTest(t)
	defer cleanup()

	assert.False(t, txn.IsOpen())
	assert.ErrorIs(t, txn.CommitTransaction(ctx), domain.ErrNoTransaction)
	assert.ErrorIs(t, txn.RollbackTransaction(ctx), domain.ErrNoTransaction)

	require.NoError(t, txn.StartTransaction(ctx))
	assert.True(t, txn.IsOpen())
	assert.ErrorIs(t, txn.StartTransaction(ctx), domain.ErrTransactionInProgress)

	require.NoError(t, txn.CommitTransaction(ctx))
	assert.False(t, txn.IsOpen())

	require.NoError(t, txn.StartTransaction(ctx))
	require.NoError(t, txn.Close(ctx))
	assert.False(t, txn.IsOpen())
	require.NoError(t, txn.Close(ctx))
}
