package directory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/internal/memstore"
	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// pausingStore holds its first ListItems call after the read until
// release is closed.
type pausingStore struct {
	*memstore.Store
	paused  atomic.Bool
	listed  chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListItems(ctx context.Context, q types.ListQuery) ([]*types.Item, error) {
	items, err := s.Store.ListItems(ctx, q)
	if s.paused.CompareAndSwap(false, true) {
		close(s.listed)
		<-s.release
	}
	return items, err
}

func TestInvalidateWinsOverSlowBuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.add(t, types.TypePerson, "Ada", "ada", types.StatusPublish, "aaa")

	store := &pausingStore{Store: f.store, listed: make(chan struct{}), release: make(chan struct{})}
	dirs := New(store, f.cache, f.reg, Options{})

	slow := make(chan *types.Directory, 1)
	go func() {
		dir, _, err := dirs.Get(ctx, types.TypePerson)
		assert.NoError(t, err)
		slow <- dir
	}()
	<-store.listed

	f.add(t, types.TypePerson, "Grace", "grace", types.StatusPublish, "bbb")
	require.NoError(t, dirs.Invalidate(ctx, types.TypePerson))

	close(store.release)
	stale := <-slow
	assert.Equal(t, []types.StableID{"aaa"}, stale.IDs(), "the slow caller sees what it read")

	dir, ok, err := dirs.Get(ctx, types.TypePerson)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, dir.Contains("bbb"), "directory after invalidate: %v", dir.IDs())
	assert.True(t, dir.Contains("aaa"))
}

func TestConcurrentGetAndInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			uid := fmt.Sprintf("uid-%d", i)
			id, err := f.store.CreateItem(ctx, &types.Item{Type: types.TypePerson, Title: uid, Slug: uid, Status: types.StatusPublish})
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, meta.SetString(ctx, f.store, id, types.AttrUniqueID, uid))
			assert.NoError(t, f.dir.Invalidate(ctx, types.TypePerson))
		}()
		go func() {
			defer wg.Done()
			for range 5 {
				_, _, err := f.dir.Get(ctx, types.TypePerson)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	dir, _, err := f.dir.Get(ctx, types.TypePerson)
	require.NoError(t, err)
	assert.Equal(t, writers, dir.Len(), "every write is visible: %v", dir.IDs())
}
