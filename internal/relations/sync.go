// Package relations keeps bidirectional relationship fields consistent and
// resolves an item's associations against the object directories.
//
// An owner's relationship field for a target type lists the stable ids of
// its counterparts. Each counterpart lists the owner's stable id in the
// field for the owner's type. Sync applies a one-sided edit and mirrors the
// delta onto the counterparts; it takes no locks, so two concurrent saves
// that touch the same counterpart can lose one update.
package relations

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Directories is the object directory cache as seen by this package.
type Directories interface {
	Get(ctx context.Context, t types.ObjectType) (*types.Directory, bool, error)
	Invalidate(ctx context.Context, t types.ObjectType) error
}

// Options configures the Synchronizer and Reader.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Result reports what one Sync changed.
type Result struct {
	Added   []types.StableID `json:"added"`
	Removed []types.StableID `json:"removed"`
	// Skipped lists added or removed ids with no directory entry.
	Skipped []types.StableID `json:"skipped"`
}

// Synchronizer applies relationship edits and their reverse updates.
type Synchronizer struct {
	store    types.ContentStore
	dirs     Directories
	registry *types.Registry
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewSynchronizer returns a Synchronizer.
func NewSynchronizer(store types.ContentStore, dirs Directories, registry *types.Registry, opts Options) *Synchronizer {
	return &Synchronizer{
		store:    store,
		dirs:     dirs,
		registry: registry,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Sync replaces owner's relationship field for target with submitted and
// mirrors the difference onto every counterpart found in target's
// directory:
//
//   - ids in submitted but not stored get ownerID appended to the
//     counterpart's field for owner's type, unless already present;
//   - ids stored but not in submitted get the first occurrence of ownerID
//     removed from that field.
//
// Ids absent from the directory are skipped. The submitted list is stored
// as given, and the directories of target and of owner's type are
// invalidated.
func (s *Synchronizer) Sync(ctx context.Context, submitted []types.StableID, target types.ObjectType, owner *types.Item, ownerID types.StableID) (Result, error) {
	var res Result
	if ownerID == "" {
		return res, fmt.Errorf("%w: owner %d has no stable id", types.ErrInvalidID, owner.ID)
	}
	if !slices.Contains(s.registry.Related(owner.Type), target) {
		return res, fmt.Errorf("%w: %s to %s", types.ErrNotRelated, owner.Type, target)
	}

	current, err := s.readIDs(ctx, owner.ID, target.FieldKey())
	if err != nil {
		return res, err
	}
	res.Added = difference(submitted, current)
	res.Removed = difference(current, submitted)

	dir, ok, err := s.dirs.Get(ctx, target)
	if err != nil {
		return res, fmt.Errorf("load %s directory: %w", target, err)
	}
	if !ok {
		return res, fmt.Errorf("%w: %s", types.ErrTypeDisabled, target)
	}

	reverseKey := owner.Type.FieldKey()
	for _, id := range res.Added {
		entry, found := dir.Lookup(id)
		if !found {
			res.Skipped = append(res.Skipped, id)
			s.skip("add", id, target)
			continue
		}
		if err := s.addReverse(ctx, entry.StorageID, reverseKey, ownerID); err != nil {
			return res, err
		}
	}
	for _, id := range res.Removed {
		entry, found := dir.Lookup(id)
		if !found {
			res.Skipped = append(res.Skipped, id)
			s.skip("remove", id, target)
			continue
		}
		if err := s.removeReverse(ctx, entry.StorageID, reverseKey, ownerID); err != nil {
			return res, err
		}
	}

	if err := meta.SetIDs(ctx, s.store, owner.ID, target.FieldKey(), submitted); err != nil {
		return res, err
	}

	if err := s.dirs.Invalidate(ctx, target); err != nil {
		return res, fmt.Errorf("invalidate %s directory: %w", target, err)
	}
	if err := s.dirs.Invalidate(ctx, owner.Type); err != nil {
		return res, fmt.Errorf("invalidate %s directory: %w", owner.Type, err)
	}

	s.log.Debug().
		Int64("item", owner.ID).
		Stringer("target", target).
		Int("added", len(res.Added)).
		Int("removed", len(res.Removed)).
		Int("skipped", len(res.Skipped)).
		Msg("relationships synchronized")
	return res, nil
}

// SyncSlot dispatches base slots to Sync. Fabricated slots are stored on
// the owner only; their counterparts are not updated.
func (s *Synchronizer) SyncSlot(ctx context.Context, submitted []types.StableID, slot types.Slot, owner *types.Item, ownerID types.StableID) (Result, error) {
	if !slot.Fabricated {
		return s.Sync(ctx, submitted, slot.Base, owner, ownerID)
	}

	var res Result
	current, err := s.readIDs(ctx, owner.ID, slot.FieldKey())
	if err != nil {
		return res, err
	}
	res.Added = difference(submitted, current)
	res.Removed = difference(current, submitted)

	if err := meta.SetIDs(ctx, s.store, owner.ID, slot.FieldKey(), submitted); err != nil {
		return res, err
	}
	if err := s.dirs.Invalidate(ctx, owner.Type); err != nil {
		return res, fmt.Errorf("invalidate %s directory: %w", owner.Type, err)
	}
	return res, nil
}

func (s *Synchronizer) addReverse(ctx context.Context, counterpart int64, key string, ownerID types.StableID) error {
	ids, err := s.readIDs(ctx, counterpart, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, ownerID) {
		return nil
	}
	if err := meta.SetIDs(ctx, s.store, counterpart, key, append(ids, ownerID)); err != nil {
		return err
	}
	s.metrics.Propagated("add")
	return nil
}

func (s *Synchronizer) removeReverse(ctx context.Context, counterpart int64, key string, ownerID types.StableID) error {
	ids, err := s.readIDs(ctx, counterpart, key)
	if err != nil {
		return err
	}
	i := slices.Index(ids, ownerID)
	if i < 0 {
		return nil
	}
	if err := meta.SetIDs(ctx, s.store, counterpart, key, slices.Delete(ids, i, i+1)); err != nil {
		return err
	}
	s.metrics.Propagated("remove")
	return nil
}

// readIDs reads a stored id list. An undecodable value reads as empty and
// is overwritten by the next write.
func (s *Synchronizer) readIDs(ctx context.Context, item int64, key string) ([]types.StableID, error) {
	ids, err := meta.GetIDs(ctx, s.store, item, key)
	if errors.Is(err, types.ErrInvalidData) {
		s.log.Warn().Err(err).Int64("item", item).Str("key", key).Msg("ignoring unreadable relationship field")
		return []types.StableID{}, nil
	}
	return ids, err
}

func (s *Synchronizer) skip(op string, id types.StableID, target types.ObjectType) {
	s.metrics.Skipped(op)
	s.log.Debug().
		Str("op", op).
		Str("id", string(id)).
		Stringer("target", target).
		Msg("counterpart not in directory")
}

// difference returns the distinct elements of a not in b, in a's order.
func difference(a, b []types.StableID) []types.StableID {
	out := []types.StableID{}
	for _, id := range a {
		if !slices.Contains(b, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
