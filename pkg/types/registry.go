package types

import (
	"fmt"
	"slices"
	"strings"
)

// Names holds the display names of an object type.
type Names struct {
	Singular string `json:"singular" yaml:"singular" mapstructure:"singular"`
	Plural   string `json:"plural" yaml:"plural" mapstructure:"plural"`
}

// Labels are the display strings derived from a type's names.
type Labels struct {
	Name            string `json:"name"`
	SingularName    string `json:"singular_name"`
	AllItems        string `json:"all_items"`
	AddNewItem      string `json:"add_new_item"`
	EditItem        string `json:"edit_item"`
	NewItem         string `json:"new_item"`
	ViewItem        string `json:"view_item"`
	SearchItems     string `json:"search_items"`
	NotFound        string `json:"not_found"`
	NotFoundInTrash string `json:"not_found_in_trash"`
}

// BuildLabels derives the full label set from singular and plural names.
func BuildLabels(n Names) Labels {
	return Labels{
		Name:            n.Plural,
		SingularName:    n.Singular,
		AllItems:        "All " + n.Plural,
		AddNewItem:      "Add " + n.Singular,
		EditItem:        "Edit " + n.Singular,
		NewItem:         "New " + n.Singular,
		ViewItem:        "View " + n.Singular,
		SearchItems:     "Search " + n.Plural,
		NotFound:        "No " + n.Plural + " found",
		NotFoundInTrash: "No " + n.Plural + " found in trash",
	}
}

// Definition is the resolved registration of one enabled object type.
type Definition struct {
	Type        ObjectType   `json:"type"`
	Names       Names        `json:"names"`
	Labels      Labels       `json:"labels"`
	Description string       `json:"description"`
	RewriteSlug string       `json:"rewrite_slug"`
	RESTBase    string       `json:"rest_base"`
	Related     []ObjectType `json:"related"`
}

// Extension customizes a type's definition. Extensions run once, in
// order, while the registry is built.
type Extension interface {
	Extend(def *Definition)
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(def *Definition)

// Extend calls f(def).
func (f ExtensionFunc) Extend(def *Definition) { f(def) }

// Slot is a relationship field an owner item can carry. Base slots hold
// ids of one object type under that type's field key. Fabricated slots
// hold ids of a base type under their own field key and are not mirrored
// onto the counterpart.
type Slot struct {
	Name       string     `json:"name"`
	Base       ObjectType `json:"base"`
	Fabricated bool       `json:"fabricated"`
}

// BaseSlot returns the slot for object type t.
func BaseSlot(t ObjectType) Slot {
	return Slot{Name: t.Slug(), Base: t}
}

// FieldKey returns the attribute key the slot is stored under.
func (s Slot) FieldKey() string {
	return "_" + s.Name + "_ids"
}

// FormField returns the submitted form field for the slot.
func (s Slot) FormField() string {
	if !s.Fabricated {
		return s.Base.FormField()
	}
	return "assign_" + s.Name + "_ids"
}

// Suffix returns the text appended to ids in the assignment widget so
// that fabricated slots over the same base type do not collide. Base
// slots have no suffix.
func (s Slot) Suffix() string {
	if !s.Fabricated {
		return ""
	}
	return s.Name
}

// FabricatedSlot configures an extra relationship slot over a base type.
// Owners lists the types that carry the slot; empty means every enabled
// type except Base.
type FabricatedSlot struct {
	Name   string
	Base   ObjectType
	Owners []ObjectType
}

// RegistryOptions configures NewRegistry. Enabled empty means all four
// types are enabled.
type RegistryOptions struct {
	Enabled    []ObjectType
	Names      map[ObjectType]Names
	Extensions map[ObjectType][]Extension
	Fabricated []FabricatedSlot
}

type fabricatedEntry struct {
	slot   Slot
	owners []ObjectType
}

// Registry is the immutable set of enabled object types and their
// definitions. It is built once at startup and passed to every component.
type Registry struct {
	enabled    []ObjectType
	defs       map[ObjectType]*Definition
	fabricated []fabricatedEntry
}

// NewRegistry resolves names, labels, related types, extensions and
// fabricated slots.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	r := &Registry{defs: make(map[ObjectType]*Definition)}

	requested := opts.Enabled
	if len(requested) == 0 {
		requested = AllTypes
	}
	for _, t := range requested {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
		}
	}
	for _, t := range AllTypes {
		if slices.Contains(requested, t) {
			r.enabled = append(r.enabled, t)
		}
	}

	for _, t := range r.enabled {
		names := t.DefaultNames()
		if override, ok := opts.Names[t]; ok {
			if override.Singular != "" {
				names.Singular = override.Singular
			}
			if override.Plural != "" {
				names.Plural = override.Plural
			}
		}
		def := &Definition{
			Type:        t,
			Names:       names,
			Labels:      BuildLabels(names),
			Description: names.Plural + " belonging to the center",
			RewriteSlug: slugify(names.Singular),
			RESTBase:    slugify(names.Plural),
		}
		for _, other := range r.enabled {
			if other != t {
				def.Related = append(def.Related, other)
			}
		}
		for _, ext := range opts.Extensions[t] {
			ext.Extend(def)
		}
		def.Type = t
		def.Related = r.cleanRelated(t, def.Related)
		r.defs[t] = def
	}

	seen := make(map[string]bool)
	for _, fs := range opts.Fabricated {
		entry, err := r.fabricate(fs, seen)
		if err != nil {
			return nil, err
		}
		r.fabricated = append(r.fabricated, entry)
	}

	return r, nil
}

// cleanRelated drops unknown, disabled, duplicate and self entries.
func (r *Registry) cleanRelated(owner ObjectType, related []ObjectType) []ObjectType {
	var out []ObjectType
	for _, t := range related {
		if t == owner || !r.IsEnabled(t) || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *Registry) fabricate(fs FabricatedSlot, seen map[string]bool) (fabricatedEntry, error) {
	name := strings.ToLower(strings.TrimSpace(fs.Name))
	if name == "" || strings.Trim(name, "abcdefghijklmnopqrstuvwxyz0123456789_") != "" {
		return fabricatedEntry{}, fmt.Errorf("%w: name %q", ErrInvalidSlot, fs.Name)
	}
	if _, err := ParseType(name); err == nil {
		return fabricatedEntry{}, fmt.Errorf("%w: %q shadows an object type", ErrInvalidSlot, name)
	}
	if seen[name] {
		return fabricatedEntry{}, fmt.Errorf("%w: duplicate %q", ErrInvalidSlot, name)
	}
	if !r.IsEnabled(fs.Base) {
		return fabricatedEntry{}, fmt.Errorf("%w: %q base %s", ErrTypeDisabled, name, fs.Base)
	}
	seen[name] = true

	var owners []ObjectType
	if len(fs.Owners) == 0 {
		owners = r.cleanRelated(fs.Base, r.enabled)
	} else {
		for _, t := range fs.Owners {
			if r.IsEnabled(t) && !slices.Contains(owners, t) {
				owners = append(owners, t)
			}
		}
	}
	return fabricatedEntry{
		slot:   Slot{Name: name, Base: fs.Base, Fabricated: true},
		owners: owners,
	}, nil
}

// Types returns the enabled object types in canonical order.
func (r *Registry) Types() []ObjectType {
	return slices.Clone(r.enabled)
}

// IsEnabled reports whether t is registered and enabled.
func (r *Registry) IsEnabled(t ObjectType) bool {
	return slices.Contains(r.enabled, t)
}

// Definition returns a copy of t's definition.
func (r *Registry) Definition(t ObjectType) (Definition, bool) {
	def, ok := r.defs[t]
	if !ok {
		return Definition{}, false
	}
	out := *def
	out.Related = slices.Clone(def.Related)
	return out, true
}

// Related returns the types an item of type t may be associated with.
func (r *Registry) Related(t ObjectType) []ObjectType {
	def, ok := r.defs[t]
	if !ok {
		return nil
	}
	return slices.Clone(def.Related)
}

// Slots returns every relationship slot an owner of type t carries: one
// base slot per related type followed by the fabricated slots.
func (r *Registry) Slots(t ObjectType) []Slot {
	var out []Slot
	for _, rel := range r.Related(t) {
		out = append(out, BaseSlot(rel))
	}
	for _, f := range r.fabricated {
		if slices.Contains(f.owners, t) {
			out = append(out, f.slot)
		}
	}
	return out
}

// Fabricated returns every fabricated slot.
func (r *Registry) Fabricated() []Slot {
	out := make([]Slot, 0, len(r.fabricated))
	for _, f := range r.fabricated {
		out = append(out, f.slot)
	}
	return out
}

// LookupSlot resolves a fabricated slot name or anything ParseType
// accepts to a slot.
func (r *Registry) LookupSlot(name string) (Slot, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, f := range r.fabricated {
		if f.slot.Name == key {
			return f.slot, nil
		}
	}
	t, err := ParseType(key)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}
	if !r.IsEnabled(t) {
		return Slot{}, fmt.Errorf("%w: %s", ErrTypeDisabled, t)
	}
	return BaseSlot(t), nil
}

// slugify lowercases s and joins runs of other characters with '-'.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
