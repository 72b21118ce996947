package types

import (
	"github.com/goccy/go-json"
)

// StableID is the opaque identifier stored in an item's AttrUniqueID
// attribute. It never changes once assigned and survives storage id
// renumbering.
type StableID string

// DirectoryEntry describes one item of a type in an object directory.
type DirectoryEntry struct {
	ID        StableID `json:"id"`
	StorageID int64    `json:"storage_id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
}

// Directory is an ordered map from stable id to entry for one object type.
// Order is the store's listing order at build time. The zero value is an
// empty directory.
type Directory struct {
	entries []DirectoryEntry
	index   map[StableID]int
}

// NewDirectory builds a directory from entries. When two entries share a
// stable id the first one wins.
func NewDirectory(entries []DirectoryEntry) *Directory {
	d := &Directory{
		entries: make([]DirectoryEntry, 0, len(entries)),
		index:   make(map[StableID]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := d.index[e.ID]; dup {
			continue
		}
		d.index[e.ID] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Lookup returns the entry for id.
func (d *Directory) Lookup(id StableID) (DirectoryEntry, bool) {
	if d == nil {
		return DirectoryEntry{}, false
	}
	i, ok := d.index[id]
	if !ok {
		return DirectoryEntry{}, false
	}
	return d.entries[i], true
}

// Contains reports whether id is in the directory.
func (d *Directory) Contains(id StableID) bool {
	_, ok := d.Lookup(id)
	return ok
}

// Entries returns a copy of the entries in directory order.
func (d *Directory) Entries() []DirectoryEntry {
	if d == nil {
		return []DirectoryEntry{}
	}
	out := make([]DirectoryEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// IDs returns the stable ids in directory order.
func (d *Directory) IDs() []StableID {
	if d == nil {
		return []StableID{}
	}
	out := make([]StableID, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.ID
	}
	return out
}

// Intersect returns the entries whose id appears in ids, in directory
// order. Ids missing from the directory are dropped.
func (d *Directory) Intersect(ids []StableID) *Directory {
	want := idSet(ids)
	return d.filter(func(e DirectoryEntry) bool { return want[e.ID] })
}

// Exclude returns the entries whose id does not appear in ids.
func (d *Directory) Exclude(ids []StableID) *Directory {
	skip := idSet(ids)
	return d.filter(func(e DirectoryEntry) bool { return !skip[e.ID] })
}

func (d *Directory) filter(keep func(DirectoryEntry) bool) *Directory {
	var kept []DirectoryEntry
	if d != nil {
		for _, e := range d.entries {
			if keep(e) {
				kept = append(kept, e)
			}
		}
	}
	return NewDirectory(kept)
}

// MarshalJSON encodes the directory as an ordered array of entries.
func (d *Directory) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Entries())
}

// UnmarshalJSON decodes an array produced by MarshalJSON.
func (d *Directory) UnmarshalJSON(b []byte) error {
	var entries []DirectoryEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	*d = *NewDirectory(entries)
	return nil
}

func idSet(ids []StableID) map[StableID]bool {
	set := make(map[StableID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
