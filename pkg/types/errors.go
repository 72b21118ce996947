package types

import "errors"

// Store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidID   = errors.New("invalid item ID")
	ErrInvalidData = errors.New("invalid item data")
	ErrDetached    = errors.New("store is not attached")
	ErrAttached    = errors.New("store is already attached")
)

// Domain errors.
var (
	ErrUnknownType   = errors.New("unknown object type")
	ErrTypeDisabled  = errors.New("object type is not enabled")
	ErrInvalidStatus = errors.New("invalid item status")
	ErrInvalidTitle  = errors.New("title must not be empty")
	ErrInvalidSlot   = errors.New("invalid relationship slot")
	ErrUnknownSlot   = errors.New("unknown relationship slot")
	ErrNotRelated    = errors.New("object types are not related")
	ErrInvalidRecord = errors.New("invalid transfer record")
)
