package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

func (b *Backend) GetAttribute(ctx context.Context, id int64, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	var value string
	err := b.db.QueryRowContext(ctx,
		"SELECT value FROM item_attributes WHERE item_id = ? AND key = ?", id, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting attribute %s of item %d: %w", key, id, err)
	}
	return []byte(value), nil
}

// SetAttribute inserts or replaces an attribute. The item must exist.
func (b *Backend) SetAttribute(ctx context.Context, id int64, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidData
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	var exists int
	err := b.db.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking item %d: %w", id, err)
	}

	if _, err := b.db.ExecContext(ctx,
		"INSERT INTO item_attributes (item_id, key, value) VALUES (?, ?, ?) "+
			"ON CONFLICT(item_id, key) DO UPDATE SET value = excluded.value",
		id, key, string(value),
	); err != nil {
		return fmt.Errorf("setting attribute %s of item %d: %w", key, id, err)
	}

	if err := b.persist(attributesFile, b.persistAttributes); err != nil {
		return fmt.Errorf("persisting %s: %w", attributesFile, err)
	}
	return nil
}

func (b *Backend) DeleteAttribute(ctx context.Context, id int64, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM item_attributes WHERE item_id = ? AND key = ?", id, key)
	if err != nil {
		return fmt.Errorf("deleting attribute %s of item %d: %w", key, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	if err := b.persist(attributesFile, b.persistAttributes); err != nil {
		return fmt.Errorf("persisting %s: %w", attributesFile, err)
	}
	return nil
}

// Attributes returns every attribute of item id.
func (b *Backend) Attributes(ctx context.Context, id int64) (map[string][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, "SELECT key, value FROM item_attributes WHERE item_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("listing attributes of item %d: %w", id, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		out[key] = []byte(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attributes: %w", err)
	}
	return out, nil
}

// persistAttributes rewrites item_attributes.jsonl.
func (b *Backend) persistAttributes() error {
	rows, err := b.db.Query("SELECT item_id, key, value FROM item_attributes ORDER BY item_id, key")
	if err != nil {
		return fmt.Errorf("querying attributes for JSONL: %w", err)
	}
	defer rows.Close()

	var recs []attributeJSON
	for rows.Next() {
		var r attributeJSON
		if err := rows.Scan(&r.ItemID, &r.Key, &r.Value); err != nil {
			return fmt.Errorf("scanning attribute for JSONL: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating attributes for JSONL: %w", err)
	}
	data, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, attributesFile), data)
}
