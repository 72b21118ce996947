package relations

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Reader resolves an item's relationship fields against the object
// directories. Ids that no longer resolve are left out of the result.
type Reader struct {
	store types.ContentStore
	dirs  Directories
	log   zerolog.Logger
}

// NewReader returns a Reader.
func NewReader(store types.ContentStore, dirs Directories, opts Options) *Reader {
	return &Reader{store: store, dirs: dirs, log: opts.Logger}
}

// Resolve returns the items of type target associated with item ownerID,
// in directory order. ok is false when target is the owner's own type or
// is not enabled. A missing owner resolves to an empty directory.
func (r *Reader) Resolve(ctx context.Context, ownerID int64, target types.ObjectType) (*types.Directory, bool, error) {
	return r.ResolveSlot(ctx, ownerID, types.BaseSlot(target))
}

// ResolveSlot is Resolve for any slot. Fabricated slots read their own
// field and resolve against their base type's directory; they may share
// the owner's type.
func (r *Reader) ResolveSlot(ctx context.Context, ownerID int64, slot types.Slot) (*types.Directory, bool, error) {
	owner, err := r.store.GetItem(ctx, ownerID)
	if errors.Is(err, types.ErrNotFound) {
		return types.NewDirectory(nil), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load item %d: %w", ownerID, err)
	}
	return r.ResolveItem(ctx, owner, slot)
}

// ResolveItem is ResolveSlot for an already loaded owner.
func (r *Reader) ResolveItem(ctx context.Context, owner *types.Item, slot types.Slot) (*types.Directory, bool, error) {
	if !slot.Fabricated && slot.Base == owner.Type {
		return nil, false, nil
	}

	dir, ok, err := r.dirs.Get(ctx, slot.Base)
	if err != nil {
		return nil, false, fmt.Errorf("load %s directory: %w", slot.Base, err)
	}
	if !ok {
		return nil, false, nil
	}

	ids, err := r.currentIDs(ctx, owner, slot)
	if err != nil {
		return nil, false, err
	}
	return dir.Intersect(ids), true, nil
}

func (r *Reader) currentIDs(ctx context.Context, owner *types.Item, slot types.Slot) ([]types.StableID, error) {
	if owner.ID == 0 {
		return []types.StableID{}, nil
	}
	ids, err := meta.GetIDs(ctx, r.store, owner.ID, slot.FieldKey())
	if errors.Is(err, types.ErrInvalidData) {
		r.log.Warn().Err(err).Int64("item", owner.ID).Str("key", slot.FieldKey()).Msg("ignoring unreadable relationship field")
		return []types.StableID{}, nil
	}
	return ids, err
}
