// Package sqlite implements the SQLite storage backend. SQLite serves as
// the query engine; JSONL files in the data directory are the source of
// truth and are loaded into a fresh database on Attach.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// DatabaseFile is the SQLite file created in the data directory.
const DatabaseFile = "organizational.db"

var (
	_ types.ContentStore = (*Backend)(nil)
	_ types.OptionStore  = (*Backend)(nil)
)

// Backend implements types.ContentStore and types.OptionStore.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
	log      zerolog.Logger
	now      func() time.Time

	syncStrategy  string
	pendingWrites []pendingWrite
	pendingMu     sync.Mutex
}

// pendingWrite is a deferred JSONL persist for one data file. The on_close
// strategy queues at most one per file.
type pendingWrite struct {
	file    string
	persist func() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithClock replaces time.Now for item timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend returns a detached backend. Call Attach before use.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: zerolog.Nop(), now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Attach creates the data directory and its JSONL files if needed, builds
// a fresh database and loads the JSONL files into it. It returns
// types.ErrAttached if the backend is already attached.
func (b *Backend) Attach(cfg types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAttached
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps PRAGMA foreign_keys in effect for every query.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.attachLocked(db, dataDir, cfg.SyncStrategy)
	b.log.Debug().Str("data_dir", dataDir).Str("sync", b.syncStrategy).Msg("sqlite backend attached")
	return nil
}

// attachLocked installs an open database. The caller holds b.mu.
func (b *Backend) attachLocked(db *sql.DB, dataDir, strategy string) {
	if strategy == "" {
		strategy = types.SyncImmediate
	}
	b.db = db
	b.dataDir = dataDir
	b.syncStrategy = strategy
	b.pendingWrites = nil
	b.attached = true
}

// Detach flushes pending writes and closes the database. It is
// idempotent. After Detach every operation returns types.ErrDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.flushPendingWrites(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// Close implements io.Closer.
func (b *Backend) Close() error {
	return b.Detach()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}

// initJSONLFiles creates empty data files that do not exist yet.
func initJSONLFiles(dataDir string) error {
	for _, name := range dataFiles {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil
}

// persist writes file now under the immediate strategy, or queues it for
// Detach under on_close. The caller holds b.mu.
func (b *Backend) persist(file string, fn func() error) error {
	if b.syncStrategy != types.SyncOnClose {
		return fn()
	}

	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for _, pw := range b.pendingWrites {
		if pw.file == file {
			return nil
		}
	}
	b.pendingWrites = append(b.pendingWrites, pendingWrite{file: file, persist: fn})
	return nil
}

// flushPendingWrites runs queued persists in order. The caller holds b.mu.
func (b *Backend) flushPendingWrites() error {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	for i, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			b.pendingWrites = b.pendingWrites[i:]
			return fmt.Errorf("flush %s: %w", pw.file, err)
		}
	}
	b.pendingWrites = nil
	return nil
}
