// Package types defines the object types, items, directories, registry,
// storage interfaces, and standard errors shared by every organizational
// component.
//
// Relationships between items are not rows in a join table. Each item keeps
// a list of stable identifiers per related type in a per-item attribute
// (see ObjectType.FieldKey), and the relationship synchronizer keeps the
// reverse lists consistent.
package types
