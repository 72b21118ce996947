package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// timeLayout is a fixed-width RFC 3339 layout so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const itemColumns = "id, type, title, slug, status, created_at, updated_at"

func (b *Backend) CreateItem(ctx context.Context, item *types.Item) (int64, error) {
	if item == nil {
		return 0, types.ErrInvalidData
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return 0, types.ErrDetached
	}

	now := b.now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	res, err := b.db.ExecContext(ctx,
		"INSERT INTO items (type, title, slug, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		item.Type.Slug(), item.Title, item.Slug, item.Status,
		item.CreatedAt.UTC().Format(timeLayout), item.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading item id: %w", err)
	}
	item.ID = id

	if err := b.persist(itemsFile, b.persistItems); err != nil {
		return 0, fmt.Errorf("persisting %s: %w", itemsFile, err)
	}
	return id, nil
}

func (b *Backend) GetItem(ctx context.Context, id int64) (*types.Item, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	row := b.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	item, err := hydrateItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return item, nil
}

func (b *Backend) UpdateItem(ctx context.Context, item *types.Item) error {
	if item == nil {
		return types.ErrInvalidData
	}
	if item.ID <= 0 {
		return types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	var created string
	err := b.db.QueryRowContext(ctx, "SELECT created_at FROM items WHERE id = ?", item.ID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking item %d: %w", item.ID, err)
	}
	createdAt, err := time.Parse(timeLayout, created)
	if err != nil {
		return fmt.Errorf("parsing created_at of item %d: %w", item.ID, err)
	}
	item.CreatedAt = createdAt
	item.UpdatedAt = b.now().UTC()

	if _, err := b.db.ExecContext(ctx,
		"UPDATE items SET type = ?, title = ?, slug = ?, status = ?, updated_at = ? WHERE id = ?",
		item.Type.Slug(), item.Title, item.Slug, item.Status, item.UpdatedAt.Format(timeLayout), item.ID,
	); err != nil {
		return fmt.Errorf("updating item %d: %w", item.ID, err)
	}

	if err := b.persist(itemsFile, b.persistItems); err != nil {
		return fmt.Errorf("persisting %s: %w", itemsFile, err)
	}
	return nil
}

// DeleteItem removes an item and its attributes.
func (b *Backend) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_attributes WHERE item_id = ?", id); err != nil {
		return fmt.Errorf("deleting attributes of item %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete of item %d: %w", id, err)
	}

	if err := b.persist(itemsFile, b.persistItems); err != nil {
		return fmt.Errorf("persisting %s: %w", itemsFile, err)
	}
	if err := b.persist(attributesFile, b.persistAttributes); err != nil {
		return fmt.Errorf("persisting %s: %w", attributesFile, err)
	}
	return nil
}

func (b *Backend) ListItems(ctx context.Context, q types.ListQuery) ([]*types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}

	query, args := buildListQuery(q)
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	out := []*types.Item{}
	for rows.Next() {
		item, err := hydrateItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return out, nil
}

// buildListQuery translates a ListQuery into SQL and arguments.
func buildListQuery(q types.ListQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Type != types.TypeUnknown {
		where = append(where, "type = ?")
		args = append(args, q.Type.Slug())
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(q.Statuses)), ", ")+")")
		for _, s := range q.Statuses {
			args = append(args, s)
		}
	}
	if q.Slug != "" {
		where = append(where, "slug = ?")
		args = append(args, q.Slug)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + itemColumns + " FROM items")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if q.OrderBy == types.OrderTitleAsc {
		sb.WriteString(" ORDER BY title COLLATE NOCASE ASC, id ASC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	switch {
	case q.Limit > 0:
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		sb.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, q.Offset)
	}
	return sb.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

// hydrateItem scans one items row.
func hydrateItem(row scanner) (*types.Item, error) {
	var (
		item               types.Item
		typ                string
		created, updatedAt string
	)
	if err := row.Scan(&item.ID, &typ, &item.Title, &item.Slug, &item.Status, &created, &updatedAt); err != nil {
		return nil, err
	}
	t, err := types.ParseType(typ)
	if err != nil {
		return nil, err
	}
	item.Type = t
	if item.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &item, nil
}

// persistItems rewrites items.jsonl from the items table.
func (b *Backend) persistItems() error {
	rows, err := b.db.Query("SELECT " + itemColumns + " FROM items ORDER BY id")
	if err != nil {
		return fmt.Errorf("querying items for JSONL: %w", err)
	}
	defer rows.Close()

	var recs []itemJSON
	for rows.Next() {
		var r itemJSON
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Slug, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return fmt.Errorf("scanning item for JSONL: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating items for JSONL: %w", err)
	}
	data, err := marshalRecords(recs)
	if err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, itemsFile), data)
}
