// Package directory maintains the per-type object directory: every
// published item of a type that has a stable identifier, keyed by that
// identifier. Directories are cached in a types.ObjectCache for a bounded
// time, rebuilt lazily on a miss, and rebuilt eagerly on invalidation.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Options configures a Cache. Zero Limit and TTL take the package
// defaults from types.
type Options struct {
	Limit   int
	TTL     time.Duration
	BaseURL string
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Cache builds and caches object directories.
type Cache struct {
	store    types.ContentStore
	cache    types.ObjectCache
	registry *types.Registry
	limit    int
	ttl      time.Duration
	baseURL  string
	log      zerolog.Logger
	metrics  *metrics.Metrics
	flight   singleflight.Group

	// mu guards gens and orders cache writes against invalidation.
	mu   sync.Mutex
	gens map[types.ObjectType]uint64
}

// New returns a Cache reading items from store and caching directories in
// cache.
func New(store types.ContentStore, cache types.ObjectCache, registry *types.Registry, opts Options) *Cache {
	c := &Cache{
		store:    store,
		cache:    cache,
		registry: registry,
		limit:    opts.Limit,
		ttl:      opts.TTL,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		log:      opts.Logger,
		metrics:  opts.Metrics,
		gens:     make(map[types.ObjectType]uint64),
	}
	if c.limit <= 0 {
		c.limit = types.DefaultDirectoryLimit
	}
	if c.ttl <= 0 {
		c.ttl = types.DefaultDirectoryTTL
	}
	return c
}

// Get returns the directory for t. ok is false when t is not an enabled
// type. Unreadable cache entries are rebuilt rather than reported.
func (c *Cache) Get(ctx context.Context, t types.ObjectType) (*types.Directory, bool, error) {
	if !c.registry.IsEnabled(t) {
		return nil, false, nil
	}

	if dir, hit := c.cached(ctx, t); hit {
		c.metrics.Lookup(t.Slug(), true)
		return dir, true, nil
	}
	c.metrics.Lookup(t.Slug(), false)

	v, err, _ := c.flight.Do(t.CacheKey(), func() (any, error) {
		return c.build(ctx, t)
	})
	if err != nil {
		return nil, true, err
	}
	return v.(*types.Directory), true, nil
}

// Invalidate deletes the cached directory for t and immediately rebuilds
// it. Disabled types are ignored.
func (c *Cache) Invalidate(ctx context.Context, t types.ObjectType) error {
	if !c.registry.IsEnabled(t) {
		return nil
	}
	key := t.CacheKey()
	c.mu.Lock()
	c.gens[t]++
	err := c.cache.Delete(ctx, key)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("drop %s directory: %w", t, err)
	}
	// Builds started before the bump will not store their result; later
	// callers must not join them.
	c.flight.Forget(key)
	_, err, _ = c.flight.Do(key, func() (any, error) {
		return c.build(ctx, t)
	})
	return err
}

func (c *Cache) generation(t types.ObjectType) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[t]
}

// InvalidateAll invalidates every enabled type.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	for _, t := range c.registry.Types() {
		if err := c.Invalidate(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) cached(ctx context.Context, t types.ObjectType) (*types.Directory, bool) {
	raw, ok, err := c.cache.Get(ctx, t.CacheKey())
	if err != nil {
		c.log.Warn().Err(err).Stringer("type", t).Msg("directory cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	dir := &types.Directory{}
	if err := json.Unmarshal(raw, dir); err != nil {
		c.log.Warn().Err(err).Stringer("type", t).Msg("discarding unreadable directory")
		return nil, false
	}
	return dir, true
}

// build lists up to limit published items of t, newest first, and keeps
// those with a stable identifier. Non-empty results are cached unless t
// was invalidated while the build ran.
func (c *Cache) build(ctx context.Context, t types.ObjectType) (*types.Directory, error) {
	gen := c.generation(t)
	items, err := c.store.ListItems(ctx, types.ListQuery{
		Type:     t,
		Statuses: []string{types.StatusPublish},
		Limit:    c.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", t, err)
	}

	def, _ := c.registry.Definition(t)
	entries := make([]types.DirectoryEntry, 0, len(items))
	for _, it := range items {
		uid, err := meta.UniqueID(ctx, c.store, it.ID)
		if err != nil {
			return nil, err
		}
		if uid == "" {
			continue
		}
		entries = append(entries, types.DirectoryEntry{
			ID:        uid,
			StorageID: it.ID,
			Name:      it.Title,
			URL:       c.permalink(def, it),
		})
	}
	dir := types.NewDirectory(entries)

	if dir.Len() > 0 {
		raw, err := json.Marshal(dir)
		if err != nil {
			return nil, fmt.Errorf("encode %s directory: %w", t, err)
		}
		if err := c.save(ctx, t, gen, raw); err != nil {
			return nil, err
		}
	}

	c.metrics.Built(t.Slug(), dir.Len())
	c.log.Debug().Stringer("type", t).Int("entries", dir.Len()).Msg("directory rebuilt")
	return dir, nil
}

// save caches raw for t if no invalidation happened since gen.
func (c *Cache) save(ctx context.Context, t types.ObjectType, gen uint64, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[t] != gen {
		c.log.Debug().Stringer("type", t).Msg("discarding stale directory build")
		return nil
	}
	if err := c.cache.Set(ctx, t.CacheKey(), raw, c.ttl); err != nil {
		return fmt.Errorf("store %s directory: %w", t, err)
	}
	return nil
}

// permalink is <base>/<rewrite slug>/<item slug>/.
func (c *Cache) permalink(def types.Definition, it *types.Item) string {
	slug := it.Slug
	if slug == "" {
		slug = strconv.FormatInt(it.ID, 10)
	}
	return c.baseURL + "/" + def.RewriteSlug + "/" + slug + "/"
}
