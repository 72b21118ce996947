package types

import (
	"context"
	"time"
)

// List orderings accepted by ContentStore.ListItems.
const (
	OrderDateDesc = "date"
	OrderTitleAsc = "title"
)

// ListQuery filters ContentStore.ListItems. Zero fields do not filter.
// A zero Limit returns every match.
type ListQuery struct {
	Type     ObjectType
	Statuses []string
	Slug     string
	OrderBy  string
	Limit    int
	Offset   int
}

// ContentStore is the host content store: items plus per-item key/value
// attributes. Attribute values are opaque bytes; each SetAttribute is a
// single atomic write and there are no multi-attribute transactions.
type ContentStore interface {
	// CreateItem stores a new item and returns its storage id. The item's
	// ID, CreatedAt and UpdatedAt are filled in.
	CreateItem(ctx context.Context, item *Item) (int64, error)

	// GetItem returns ErrNotFound when no item has the id.
	GetItem(ctx context.Context, id int64) (*Item, error)

	// UpdateItem overwrites the core fields of an existing item.
	UpdateItem(ctx context.Context, item *Item) error

	// DeleteItem removes the item and all of its attributes.
	DeleteItem(ctx context.Context, id int64) error

	// ListItems returns items matching q, newest first unless q.OrderBy
	// says otherwise.
	ListItems(ctx context.Context, q ListQuery) ([]*Item, error)

	// GetAttribute returns nil, nil when the attribute is not set.
	GetAttribute(ctx context.Context, id int64, key string) ([]byte, error)
	SetAttribute(ctx context.Context, id int64, key string, value []byte) error
	DeleteAttribute(ctx context.Context, id int64, key string) error

	// Attributes returns every attribute of the item.
	Attributes(ctx context.Context, id int64) (map[string][]byte, error)
}

// OptionStore holds site-wide options such as the stored schema version.
type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
}

// ObjectCache is a shared expiring key/value cache.
type ObjectCache interface {
	// Get reports false on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
