// Package organizational is the caller-facing API of the relationship
// store. A Service wires the identity assigner, the object directory cache,
// the relationship synchronizer and the association reader around one
// content store, and runs the save pipeline that keeps relationship
// fields bidirectional.
package organizational

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organizational/internal/directory"
	"github.com/mesh-intelligence/organizational/internal/identity"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/internal/relations"
	"github.com/mesh-intelligence/organizational/internal/sanitize"
	"github.com/mesh-intelligence/organizational/internal/transfer"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// Version is recorded in the organizational_version option by Upgrade.
const Version = "1.2.0"

// Options configures a Service.
type Options struct {
	// OptionStore records the schema version. Upgrade is a no-op without
	// one.
	OptionStore types.OptionStore

	BaseURL        string
	DirectoryLimit int
	DirectoryTTL   time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	// NewID overrides stable id minting.
	NewID func() string
}

// Service exposes the organizational operations over one store.
type Service struct {
	store    types.ContentStore
	options  types.OptionStore
	registry *types.Registry
	dirs     *directory.Cache
	ids      *identity.Assigner
	sync     *relations.Synchronizer
	reader   *relations.Reader
	transfer *transfer.Transfer
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New builds a Service over store, caching directories in cache.
func New(store types.ContentStore, cache types.ObjectCache, registry *types.Registry, opts Options) *Service {
	dirs := directory.New(store, cache, registry, directory.Options{
		Limit:   opts.DirectoryLimit,
		TTL:     opts.DirectoryTTL,
		BaseURL: opts.BaseURL,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	relOpts := relations.Options{Logger: opts.Logger, Metrics: opts.Metrics}
	return &Service{
		store:    store,
		options:  opts.OptionStore,
		registry: registry,
		dirs:     dirs,
		ids: identity.New(store, registry, dirs, identity.Options{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
			NewID:   opts.NewID,
		}),
		sync:     relations.NewSynchronizer(store, dirs, registry, relOpts),
		reader:   relations.NewReader(store, dirs, relOpts),
		transfer: transfer.New(store, dirs, transfer.Options{Logger: opts.Logger}),
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Registry returns the type registry the service was built with.
func (s *Service) Registry() *types.Registry {
	return s.registry
}

// GetObjectTypeSlugs returns the enabled object types in registration
// order.
func (s *Service) GetObjectTypeSlugs() []types.ObjectType {
	return s.registry.Types()
}

// TypeInfo describes one enabled type and the slots its items carry.
type TypeInfo struct {
	types.Definition
	Slots []types.Slot `json:"slots"`
}

// Types returns a TypeInfo per enabled type.
func (s *Service) Types() []TypeInfo {
	var out []TypeInfo
	for _, t := range s.registry.Types() {
		def, _ := s.registry.Definition(t)
		out = append(out, TypeInfo{Definition: def, Slots: s.registry.Slots(t)})
	}
	return out
}

// GetAllObjectData returns the directory of every published object of t.
// ok is false when t is not enabled.
func (s *Service) GetAllObjectData(ctx context.Context, t types.ObjectType) (*types.Directory, bool, error) {
	return s.dirs.Get(ctx, t)
}

// GetObjectObjects returns the objects of type t associated with item
// itemID. ok is false when t is the item's own type or is not enabled.
func (s *Service) GetObjectObjects(ctx context.Context, itemID int64, t types.ObjectType) (*types.Directory, bool, error) {
	return s.reader.Resolve(ctx, itemID, t)
}

// GetSlotObjects is GetObjectObjects for a slot name, which may name a
// fabricated slot.
func (s *Service) GetSlotObjects(ctx context.Context, itemID int64, slotName string) (*types.Directory, bool, error) {
	slot, err := s.registry.LookupSlot(slotName)
	if err != nil {
		return nil, false, err
	}
	return s.reader.ResolveSlot(ctx, itemID, slot)
}

// CleanPostedIDs normalizes submitted stable ids.
func (s *Service) CleanPostedIDs(raw []string, strip string) []types.StableID {
	return sanitize.Clean(raw, strip)
}

// Widget returns the assignment widget for item itemID and slot. The slot
// must be one the item's type carries.
func (s *Service) Widget(ctx context.Context, itemID int64, slotName, query string) (*relations.Widget, error) {
	owner, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	slot, err := s.ownerSlot(owner.Type, slotName)
	if err != nil {
		return nil, err
	}
	return s.reader.Widget(ctx, owner, slot, query)
}

// ownerSlot resolves slotName among the slots of owner type t.
func (s *Service) ownerSlot(t types.ObjectType, slotName string) (types.Slot, error) {
	slot, err := s.registry.LookupSlot(slotName)
	if err != nil {
		return types.Slot{}, err
	}
	for _, sl := range s.registry.Slots(t) {
		if sl == slot {
			return slot, nil
		}
	}
	return types.Slot{}, fmt.Errorf("%w: %s has no %s slot", types.ErrNotRelated, t, slot.Name)
}

// InvalidateAll drops and rebuilds every directory.
func (s *Service) InvalidateAll(ctx context.Context) error {
	return s.dirs.InvalidateAll(ctx)
}
