package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T, prefix string) *Badger {
	t.Helper()
	c, err := Open(Config{InMemory: true, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t, "org:")

	_, ok, err := c.Get(ctx, "organizational_all_person")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "organizational_all_person", []byte(`[{"id":"a"}]`), time.Hour))
	v, ok, err := c.Get(ctx, "organizational_all_person")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(v))

	require.NoError(t, c.Delete(ctx, "organizational_all_person"))
	_, ok, _ = c.Get(ctx, "organizational_all_person")
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, "never-set"))
}

func TestBadgerTTLExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a TTL to lapse")
	}
	ctx := context.Background()
	c := openMemory(t, "")

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	time.Sleep(2100 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerPrefixesIsolateCaches(t *testing.T) {
	ctx := context.Background()
	a := openMemory(t, "a:")
	shared := New(a.db, "b:")

	require.NoError(t, a.Set(ctx, "k", []byte("from-a"), 0))
	_, ok, _ := shared.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, shared.Set(ctx, "k", []byte("from-b"), 0))
	require.NoError(t, a.Flush())

	_, ok, _ = a.Get(ctx, "k")
	assert.False(t, ok)
	v, ok, _ := shared.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "from-b", string(v))
	assert.NoError(t, shared.Close())
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, c.Close())

	again, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer again.Close()
	v, ok, err := again.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
