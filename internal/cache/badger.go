// Package cache implements types.ObjectCache on BadgerDB. Entries carry a
// badger TTL, so expired directories read as misses without a sweeper.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

var _ types.ObjectCache = (*Badger)(nil)

// Config configures Open.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps every entry in memory.
	InMemory bool

	// SyncWrites fsyncs every write. Off by default; the cache is
	// disposable.
	SyncWrites bool

	// Prefix namespaces every key so several caches can share a database.
	Prefix string

	// Logger receives badger's internal log lines. Nil disables them.
	Logger *zerolog.Logger
}

// Badger is a types.ObjectCache backed by a badger database.
type Badger struct {
	db     *badger.DB
	prefix []byte
	owned  bool
}

// zerologAdapter routes badger's logger interface to zerolog.
type zerologAdapter struct {
	log zerolog.Logger
}

func (a zerologAdapter) Errorf(format string, args ...any) {
	a.log.Error().Msgf(format, args...)
}

func (a zerologAdapter) Warningf(format string, args ...any) {
	a.log.Warn().Msgf(format, args...)
}

func (a zerologAdapter) Infof(format string, args ...any) {
	a.log.Debug().Msgf(format, args...)
}

func (a zerologAdapter) Debugf(format string, args ...any) {
	a.log.Trace().Msgf(format, args...)
}

// Open opens (or creates) a badger database for the cache.
func Open(cfg Config) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache path is required unless in memory")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(zerologAdapter{log: cfg.Logger.With().Str("component", "badger").Logger()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	c := New(db, cfg.Prefix)
	c.owned = true
	return c, nil
}

// New wraps an already open database. Close does not close db.
func New(db *badger.DB, prefix string) *Badger {
	return &Badger{db: db, prefix: []byte(prefix)}
}

func (c *Badger) key(k string) []byte {
	out := make([]byte, 0, len(c.prefix)+len(k))
	out = append(out, c.prefix...)
	return append(out, k...)
}

// Get returns the value stored under key. Expired entries are misses.
func (c *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A non-positive ttl never expires.
func (c *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(c.key(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Badger) Delete(_ context.Context, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.key(key))
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Flush drops every entry under this cache's prefix.
func (c *Badger) Flush() error {
	if len(c.prefix) == 0 {
		return c.db.DropAll()
	}
	return c.db.DropPrefix(c.prefix)
}

// Close closes the database when Open created it.
func (c *Badger) Close() error {
	if !c.owned {
		return nil
	}
	return c.db.Close()
}
