package organizational

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/mesh-intelligence/organizational/internal/identity"
	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/internal/relations"
	"github.com/mesh-intelligence/organizational/internal/sanitize"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// SaveRequest is one save of an item. Item.ID zero creates the item.
type SaveRequest struct {
	Item types.Item

	// Fields holds profile fields (see types.Fields). Present keys are
	// written; an empty value clears the field.
	Fields map[string]string

	// Form holds submitted relationship fields keyed by form field name,
	// e.g. "assign_projects_ids", each a comma-joined id list. Only
	// present keys are synchronized; an empty value clears the field.
	Form map[string]string

	Autosave  bool
	Importing bool
}

// SaveResult reports what a save did.
type SaveResult struct {
	Op       string                      `json:"op"`
	Item     *types.Item                 `json:"item"`
	StableID types.StableID              `json:"stable_id,omitempty"`
	Skipped  bool                        `json:"skipped"`
	Slots    map[string]relations.Result `json:"slots,omitempty"`
}

var fieldRules = map[string]string{
	"email": "omitempty,email",
}

var validate = validator.New()

// Save persists the item's core and profile fields, then, unless the save
// is skipped (autosave, import, disabled type or auto-draft), assigns the
// stable id and synchronizes every submitted relationship field the
// item's type carries.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	start := time.Now()
	res := &SaveResult{Op: ulid.Make().String()}
	log := s.log.With().Str("op", res.Op).Logger()

	if err := validateFields(req.Item.Type, req.Fields); err != nil {
		return nil, err
	}
	item, err := s.persistItem(ctx, req.Item)
	if err != nil {
		return nil, err
	}
	res.Item = item
	if err := s.writeFields(ctx, item, req.Fields); err != nil {
		return nil, err
	}

	sc := identity.SaveContext{Autosave: req.Autosave, Importing: req.Importing}
	if identity.Skip(s.registry, item, sc) {
		res.Skipped = true
		log.Debug().Int64("item", item.ID).Msg("save skipped relationship processing")
		return res, nil
	}

	uid, _, err := s.ids.Ensure(ctx, item, sc)
	if err != nil {
		return nil, err
	}
	res.StableID = uid

	for _, slot := range s.registry.Slots(item.Type) {
		raw, ok := req.Form[slot.FormField()]
		if !ok {
			continue
		}
		submitted := sanitize.CleanString(raw, slot.Suffix())
		r, err := s.sync.SyncSlot(ctx, submitted, slot, item, uid)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", slot.Name, err)
		}
		if res.Slots == nil {
			res.Slots = make(map[string]relations.Result)
		}
		res.Slots[slot.Name] = r
	}

	if err := s.dirs.Invalidate(ctx, item.Type); err != nil {
		return nil, fmt.Errorf("invalidate %s directory: %w", item.Type, err)
	}

	s.metrics.ObserveSave(time.Since(start).Seconds())
	log.Info().
		Int64("item", item.ID).
		Stringer("type", item.Type).
		Str("unique_id", string(uid)).
		Strs("slots", slices.Sorted(maps.Keys(res.Slots))).
		Msg("item saved")
	return res, nil
}

// persistItem validates and creates or updates the core fields.
func (s *Service) persistItem(ctx context.Context, in types.Item) (*types.Item, error) {
	if !in.Type.Valid() {
		return nil, types.ErrUnknownType
	}
	if !s.registry.IsEnabled(in.Type) {
		return nil, fmt.Errorf("%w: %s", types.ErrTypeDisabled, in.Type)
	}
	if in.Status == "" {
		in.Status = types.StatusDraft
	}
	if !types.ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, in.Status)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" && in.Status != types.StatusAutoDraft {
		return nil, types.ErrInvalidTitle
	}
	if in.Slug == "" {
		in.Slug = in.Title
	}
	in.Slug = sanitize.Title(in.Slug)

	item := in
	if item.ID == 0 {
		if _, err := s.store.CreateItem(ctx, &item); err != nil {
			return nil, fmt.Errorf("creating item: %w", err)
		}
		return &item, nil
	}

	old, err := s.store.GetItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if old.Type != item.Type {
		return nil, fmt.Errorf("%w: item %d is a %s", types.ErrInvalidData, item.ID, old.Type)
	}
	if err := s.store.UpdateItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("updating item %d: %w", item.ID, err)
	}
	return &item, nil
}

// validateFields rejects unknown profile fields and invalid values with
// types.ErrInvalidData.
func validateFields(t types.ObjectType, fields map[string]string) error {
	var errs []error
	for name, value := range fields {
		if !types.HasField(t, name) {
			errs = append(errs, fmt.Errorf("%w: %s has no field %q", types.ErrInvalidData, t, name))
			continue
		}
		if rule, ok := fieldRules[name]; ok {
			if err := validate.Var(strings.TrimSpace(value), rule); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", types.ErrInvalidData, name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// writeFields stores validated profile fields.
func (s *Service) writeFields(ctx context.Context, item *types.Item, fields map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		key := types.FieldAttr(item.Type, name)
		value := strings.TrimSpace(fields[name])
		if value == "" {
			if err := s.store.DeleteAttribute(ctx, item.ID, key); err != nil {
				return fmt.Errorf("clearing %s: %w", name, err)
			}
			continue
		}
		if err := meta.SetString(ctx, s.store, item.ID, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Fields returns the stored profile fields of item id.
func (s *Service) Fields(ctx context.Context, id int64) (map[string]string, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, name := range types.Fields(item.Type) {
		v, err := meta.GetString(ctx, s.store, id, types.FieldAttr(item.Type, name))
		if err != nil {
			return nil, err
		}
		if v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// Get returns item id.
func (s *Service) Get(ctx context.Context, id int64) (*types.Item, error) {
	return s.store.GetItem(ctx, id)
}

// StableID returns the stable identifier of item id, or "" when none has
// been assigned.
func (s *Service) StableID(ctx context.Context, id int64) (types.StableID, error) {
	return meta.UniqueID(ctx, s.store, id)
}

// List returns items matching q.
func (s *Service) List(ctx context.Context, q types.ListQuery) ([]*types.Item, error) {
	return s.store.ListItems(ctx, q)
}

// Trash moves item id to the trash. Relationship fields that point at it
// are left in place; readers drop them because trashed items leave the
// directory.
func (s *Service) Trash(ctx context.Context, id int64) (*types.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Status = types.StatusTrash
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("trashing item %d: %w", id, err)
	}
	if err := s.dirs.Invalidate(ctx, item.Type); err != nil {
		return nil, fmt.Errorf("invalidate %s directory: %w", item.Type, err)
	}
	return item, nil
}

// Delete removes item id and its attributes. References held by other
// items become dangling and are skipped on read and sync.
func (s *Service) Delete(ctx context.Context, id int64) error {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	if err := s.dirs.Invalidate(ctx, item.Type); err != nil {
		return fmt.Errorf("invalidate %s directory: %w", item.Type, err)
	}
	return nil
}

// Assign replaces the slot field of item itemID with ids and synchronizes
// the counterparts. The slot must be one the item's type carries.
func (s *Service) Assign(ctx context.Context, itemID int64, slotName string, ids []string) (*SaveResult, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	slot, err := s.ownerSlot(item.Type, slotName)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, SaveRequest{
		Item: *item,
		Form: map[string]string{slot.FormField(): strings.Join(ids, ",")},
	})
}
