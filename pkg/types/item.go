package types

import "time"

// Item statuses.
const (
	StatusAutoDraft = "auto-draft"
	StatusDraft     = "draft"
	StatusPublish   = "publish"
	StatusTrash     = "trash"
)

var knownStatuses = map[string]bool{
	StatusAutoDraft: true,
	StatusDraft:     true,
	StatusPublish:   true,
	StatusTrash:     true,
}

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	return knownStatuses[s]
}

// Item is one piece of content of an organizational type. ID is the
// store-assigned storage id; it is not stable across export and import.
// The stable identifier lives in the AttrUniqueID attribute.
type Item struct {
	ID        int64      `json:"id"`
	Type      ObjectType `json:"type"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Published reports whether the item is publicly visible.
func (i *Item) Published() bool {
	return i.Status == StatusPublish
}
