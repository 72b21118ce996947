// Package identity assigns stable identifiers to organizational items.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Invalidator drops and refills the object directory of a type.
type Invalidator interface {
	Invalidate(ctx context.Context, t types.ObjectType) error
}

// SaveContext describes the save that triggered assignment.
type SaveContext struct {
	Autosave  bool
	Importing bool
}

// Options configures an Assigner.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// NewID overrides identifier minting in tests.
	NewID func() string
}

// Assigner ensures every saved item of an enabled type carries exactly one
// stable identifier in its types.AttrUniqueID attribute.
type Assigner struct {
	store     types.ContentStore
	registry  *types.Registry
	directory Invalidator
	log       zerolog.Logger
	metrics   *metrics.Metrics
	newID     func() string
}

// New returns an Assigner. directory may be nil.
func New(store types.ContentStore, registry *types.Registry, directory Invalidator, opts Options) *Assigner {
	a := &Assigner{
		store:     store,
		registry:  registry,
		directory: directory,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		newID:     opts.NewID,
	}
	if a.newID == nil {
		a.newID = NewStableID
	}
	return a
}

// NewStableID mints a time-ordered UUID v7, falling back to v4. The result
// is lowercase and survives sanitize.Key unchanged.
func NewStableID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Skip reports whether a save of item under sc must leave identities and
// relationships alone.
func Skip(registry *types.Registry, item *types.Item, sc SaveContext) bool {
	return sc.Autosave || sc.Importing ||
		!registry.IsEnabled(item.Type) ||
		item.Status == types.StatusAutoDraft
}

// Ensure returns the item's stable identifier, minting and storing one if
// it has none. assigned is false when the save is skipped. Only store
// errors are returned.
func (a *Assigner) Ensure(ctx context.Context, item *types.Item, sc SaveContext) (id types.StableID, assigned bool, err error) {
	if Skip(a.registry, item, sc) {
		return "", false, nil
	}

	id, err = meta.UniqueID(ctx, a.store, item.ID)
	if err != nil {
		return "", false, err
	}
	if id == "" {
		id = types.StableID(strings.ToLower(a.newID()))
		if err := meta.SetString(ctx, a.store, item.ID, types.AttrUniqueID, string(id)); err != nil {
			return "", false, err
		}
		a.metrics.Minted()
		a.log.Debug().
			Int64("item", item.ID).
			Stringer("type", item.Type).
			Str("unique_id", string(id)).
			Msg("assigned stable id")
	}

	if a.directory != nil {
		if err := a.directory.Invalidate(ctx, item.Type); err != nil {
			return id, true, fmt.Errorf("invalidate %s directory: %w", item.Type, err)
		}
	}
	return id, true, nil
}
