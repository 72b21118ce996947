package relations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/internal/cache"
	"github.com/mesh-intelligence/organizational/internal/directory"
	"github.com/mesh-intelligence/organizational/internal/memstore"
	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// recordingDirs wraps a directory cache and records invalidations.
type recordingDirs struct {
	*directory.Cache
	invalidated []types.ObjectType
}

func (d *recordingDirs) Invalidate(ctx context.Context, t types.ObjectType) error {
	d.invalidated = append(d.invalidated, t)
	return d.Cache.Invalidate(ctx, t)
}

type fixture struct {
	store  *memstore.Store
	reg    *types.Registry
	dirs   *recordingDirs
	sync   *Synchronizer
	reader *Reader
}

func newFixture(t *testing.T, opts types.RegistryOptions) *fixture {
	t.Helper()
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := memstore.New(memstore.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	c, err := cache.Open(cache.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	reg, err := types.NewRegistry(opts)
	require.NoError(t, err)

	dirs := &recordingDirs{Cache: directory.New(store, c, reg, directory.Options{})}
	return &fixture{
		store:  store,
		reg:    reg,
		dirs:   dirs,
		sync:   NewSynchronizer(store, dirs, reg, Options{}),
		reader: NewReader(store, dirs, Options{}),
	}
}

// add creates a published item with the given stable id.
func (f *fixture) add(t *testing.T, typ types.ObjectType, title, uid string) *types.Item {
	t.Helper()
	ctx := context.Background()
	it := &types.Item{Type: typ, Title: title, Slug: title, Status: types.StatusPublish}
	_, err := f.store.CreateItem(ctx, it)
	require.NoError(t, err)
	require.NoError(t, meta.SetString(ctx, f.store, it.ID, types.AttrUniqueID, uid))
	require.NoError(t, f.dirs.Cache.Invalidate(ctx, typ))
	return it
}

func (f *fixture) ids(t *testing.T, item *types.Item, key string) []types.StableID {
	t.Helper()
	ids, err := meta.GetIDs(context.Background(), f.store, item.ID, key)
	require.NoError(t, err)
	return ids
}

func (f *fixture) setIDs(t *testing.T, item *types.Item, key string, ids ...types.StableID) {
	t.Helper()
	require.NoError(t, meta.SetIDs(context.Background(), f.store, item.ID, key, ids))
}

func stableIDs(ids ...string) []types.StableID {
	out := make([]types.StableID, len(ids))
	for i, id := range ids {
		out[i] = types.StableID(id)
	}
	return out
}
