package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

func (b *Backend) GetOption(ctx context.Context, name string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return "", false, types.ErrDetached
	}

	var value string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM options WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting option %s: %w", name, err)
	}
	return value, true, nil
}

func (b *Backend) SetOption(ctx context.Context, name, value string) error {
	if name == "" {
		return types.ErrInvalidData
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	if _, err := b.db.ExecContext(ctx,
		"INSERT INTO options (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		name, value,
	); err != nil {
		return fmt.Errorf("setting option %s: %w", name, err)
	}
	if err := b.persist(optionsFile, b.persistOptions); err != nil {
		return fmt.Errorf("persisting %s: %w", optionsFile, err)
	}
	return nil
}

func (b *Backend) persistOptions() error {
	rows, err := b.db.Query("SELECT name, value FROM options ORDER BY name")
	if err != nil {
		return fmt.Errorf("querying options for JSONL: %w", err)
	}
	defer rows.Close()

	var recs []optionJSON
	for rows.Next() {
		var r optionJSON
		if err := rows.Scan(&r.Name, &r.Value); err != nil {
			return fmt.Errorf("scanning option for JSONL: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating options for JSONL: %w", err)
	}
	data, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, optionsFile), data)
}
