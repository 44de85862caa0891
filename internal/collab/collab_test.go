package collab_test

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/workspace-sync/internal/collab"
	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageConfig(t *testing.T) config.StorageConfig {
	return config.StorageConfig{
		DataDir:      t.TempDir(),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 2,
	}
}

func openTestStore(t *testing.T, uid int64) *collab.Store {
	t.Helper()
	cfg := testStorageConfig(t)
	store, err := collab.OpenStore(context.Background(), cfg.CollabPath(uid), uid, cfg, "collab-secret")
	require.NoError(t, err)
	return store
}

func TestStore_PutGetList(t *testing.T) {
	store := openTestStore(t, 1)
	defer store.Close()
	ctx := context.Background()

	doc := domain.EncodedCollab{StateVector: []byte{1}, DocState: []byte("doc-1")}
	require.NoError(t, store.Put(ctx, 1, "d2", domain.CollabTypeDocument, doc))
	require.NoError(t, store.Put(ctx, 1, "d1", domain.CollabTypeDocument, doc))
	require.NoError(t, store.Put(ctx, 1, "r1", domain.CollabTypeDatabaseRow, doc))

	got, err := store.GetEncodedCollab(ctx, 1, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc, *got)

	ids, err := store.ListObjectIDs(ctx, 1, domain.CollabTypeDocument)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)

	rows, err := store.ListObjectIDs(ctx, 1, domain.CollabTypeDatabaseRow)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, rows)

	missing, err := store.GetEncodedCollab(ctx, 1, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_PayloadSealedPerUser(t *testing.T) {
	cfg := testStorageConfig(t)
	ctx := context.Background()
	path := cfg.CollabPath(1)

	store, err := collab.OpenStore(ctx, path, 1, cfg, "collab-secret")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, 1, "d1", domain.CollabTypeDocument, domain.EncodedCollab{DocState: []byte("x")}))
	require.NoError(t, store.Close())

	// same file opened with another uid's key cannot decode the payload
	wrong, err := collab.OpenStore(ctx, path, 2, cfg, "collab-secret")
	require.NoError(t, err)
	defer wrong.Close()

	_, err = wrong.GetEncodedCollab(ctx, 1, "d1")
	assert.ErrorIs(t, err, domain.ErrConversion)
}

func TestWeak_UpgradeFailsAfterClose(t *testing.T) {
	owner := collab.NewOwner(openTestStore(t, 1))
	weak := owner.Weak()

	lease, ok := weak.Upgrade()
	require.True(t, ok)
	lease.Release()

	require.NoError(t, owner.Close())

	lease, ok = weak.Upgrade()
	assert.False(t, ok)
	assert.Nil(t, lease)
}

func TestLease_KeepsStoreOpenUntilReleased(t *testing.T) {
	store := openTestStore(t, 1)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, 1, "d1", domain.CollabTypeDocument, domain.EncodedCollab{DocState: []byte("x")}))

	owner := collab.NewOwner(store)
	lease, ok := owner.Weak().Upgrade()
	require.True(t, ok)

	require.NoError(t, owner.Close())

	got, err := lease.GetEncodedCollab(ctx, 1, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)

	lease.Release()
	lease.Release()

	_, err = store.ListObjectIDs(ctx, 1, domain.CollabTypeDocument)
	assert.Error(t, err)
}

func TestRegistry_ReusesAndReopens(t *testing.T) {
	registry := collab.NewRegistry(testStorageConfig(t), "collab-secret")
	defer registry.CloseAll()
	ctx := context.Background()

	first, err := registry.Owner(ctx, 1)
	require.NoError(t, err)
	again, err := registry.Owner(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, first, again)

	handle, err := registry.Handle(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, registry.CloseUser(1))
	assert.Equal(t, 0, registry.Size())

	_, ok := handle.Upgrade()
	assert.False(t, ok)

	reopened, err := registry.Owner(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, first, reopened)
	assert.Equal(t, 1, registry.Size())
}
