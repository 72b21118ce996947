// Package sqlite opens the SQLite content store for programs outside this
// module. The implementation stays internal.
package sqlite

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/internal/sqlite"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Store is an attached SQLite content store. Detach flushes pending
// JSONL writes and closes the database.
type Store interface {
	types.ContentStore
	types.OptionStore
	Detach() error
}

// Open attaches a store rooted at cfg.DataDir, loading any JSONL files
// already there.
//
// Example:
//
//	store, err := sqlite.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/organizational",
//	}, zerolog.Nop())
//	defer store.Detach()
func Open(cfg types.Config, log zerolog.Logger) (Store, error) {
	backend := sqlite.NewBackend(sqlite.WithLogger(log))
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}
