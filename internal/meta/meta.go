// Package meta reads and writes typed item attributes on a
// types.ContentStore. Values are stored as JSON.
package meta

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// GetString returns the string attribute key of item id, or "" when unset.
func GetString(ctx context.Context, store types.ContentStore, id int64, key string) (string, error) {
	raw, err := store.GetAttribute(ctx, id, key)
	if err != nil {
		return "", fmt.Errorf("reading %s of item %d: %w", key, id, err)
	}
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decoding %s of item %d: %w", key, id, err)
	}
	return s, nil
}

// SetString stores s as the attribute key of item id.
func SetString(ctx context.Context, store types.ContentStore, id int64, key, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := store.SetAttribute(ctx, id, key, raw); err != nil {
		return fmt.Errorf("writing %s of item %d: %w", key, id, err)
	}
	return nil
}

// GetIDs returns the stable id list stored under key, or an empty slice
// when unset. A value that is not a JSON array of strings returns
// types.ErrInvalidData.
func GetIDs(ctx context.Context, store types.ContentStore, id int64, key string) ([]types.StableID, error) {
	raw, err := store.GetAttribute(ctx, id, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s of item %d: %w", key, id, err)
	}
	return DecodeIDs(raw)
}

// DecodeIDs decodes a stored id list. Empty input and JSON null decode to
// an empty slice.
func DecodeIDs(raw []byte) ([]types.StableID, error) {
	ids := []types.StableID{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []types.StableID{}, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if ids == nil {
		ids = []types.StableID{}
	}
	return ids, nil
}

// SetIDs stores ids under key. A nil slice is stored as an empty array.
func SetIDs(ctx context.Context, store types.ContentStore, id int64, key string, ids []types.StableID) error {
	if ids == nil {
		ids = []types.StableID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := store.SetAttribute(ctx, id, key, raw); err != nil {
		return fmt.Errorf("writing %s of item %d: %w", key, id, err)
	}
	return nil
}

// UniqueID returns the stable identifier of item id, or "" when none has
// been assigned.
func UniqueID(ctx context.Context, store types.ContentStore, id int64) (types.StableID, error) {
	s, err := GetString(ctx, store, id, types.AttrUniqueID)
	return types.StableID(s), err
}
