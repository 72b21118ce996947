package types

import (
	"fmt"
	"strings"
)

// ObjectType is the closed set of organizational content types.
type ObjectType uint8

// Registered object types. TypeUnknown is the zero value and is never valid.
const (
	TypeUnknown ObjectType = iota
	TypePerson
	TypeProject
	TypeEntity
	TypePublication
)

// AllTypes lists every object type in canonical order.
var AllTypes = []ObjectType{TypePerson, TypeProject, TypeEntity, TypePublication}

// Attribute keys shared across object types.
const (
	AttrUniqueID       = "_unique_id"
	AttrPersonLastName = "_person_last_name"
)

// CacheKeyPrefix prefixes every object directory cache key.
const CacheKeyPrefix = "organizational_all_"

// typeInfo is one row of the registration table.
type typeInfo struct {
	slug     string // attribute and cache key stem
	formBase string // plural stem used by form fields
	singular string
	plural   string
	queryVar string // related-item filter on list requests
}

var typeTable = [...]typeInfo{
	TypePerson:      {"person", "people", "Person", "People", "org_person"},
	TypeProject:     {"project", "projects", "Project", "Projects", "org_project"},
	TypeEntity:      {"entity", "entities", "Entity", "Entities", "org_organization"},
	TypePublication: {"publication", "publications", "Publication", "Publications", "org_publication"},
}

// Valid reports whether t is one of the four registered types.
func (t ObjectType) Valid() bool {
	return t > TypeUnknown && int(t) < len(typeTable)
}

// Slug returns the type's short name, e.g. "person".
func (t ObjectType) Slug() string {
	if !t.Valid() {
		return ""
	}
	return typeTable[t].slug
}

func (t ObjectType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ObjectType(%d)", uint8(t))
	}
	return typeTable[t].slug
}

// FormBase returns the plural stem used by assignment form fields.
func (t ObjectType) FormBase() string {
	if !t.Valid() {
		return ""
	}
	return typeTable[t].formBase
}

// FieldKey returns the attribute key holding a list of stable ids of this
// type, e.g. "_person_ids".
func (t ObjectType) FieldKey() string {
	return "_" + t.Slug() + "_ids"
}

// CacheKey returns the object directory cache key for this type.
func (t ObjectType) CacheKey() string {
	return CacheKeyPrefix + t.Slug()
}

// FormField returns the submitted form field carrying ids of this type,
// e.g. "assign_people_ids".
func (t ObjectType) FormField() string {
	return "assign_" + t.FormBase() + "_ids"
}

// QueryVar returns the list filter parameter naming an item of this type
// by slug, e.g. "org_person".
func (t ObjectType) QueryVar() string {
	if !t.Valid() {
		return ""
	}
	return typeTable[t].queryVar
}

// DefaultNames returns the built-in singular and plural names.
func (t ObjectType) DefaultNames() Names {
	if !t.Valid() {
		return Names{}
	}
	return Names{Singular: typeTable[t].singular, Plural: typeTable[t].plural}
}

// MarshalText encodes the type as its slug.
func (t ObjectType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return []byte(t.Slug()), nil
}

// UnmarshalText accepts anything ParseType accepts.
func (t *ObjectType) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType resolves a slug ("person"), form stem ("people") or list
// filter parameter ("org_person") to an ObjectType. Matching is case
// insensitive.
func ParseType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllTypes {
		info := typeTable[t]
		if s == info.slug || s == info.formBase || s == info.queryVar {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: %q", ErrUnknownType, s)
}
