// Package memstore provides an in-process types.ContentStore. It backs the
// "memory" backend and the unit tests of the packages built on top of the
// store interfaces.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

var (
	_ types.ContentStore = (*Store)(nil)
	_ types.OptionStore  = (*Store)(nil)
)

// Store keeps items, attributes and options in maps guarded by one lock.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	items   map[int64]types.Item
	attrs   map[int64]map[string][]byte
	options map[string]string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for created and updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:   make(map[int64]types.Item),
		attrs:   make(map[int64]map[string][]byte),
		options: make(map[string]string),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) CreateItem(_ context.Context, item *types.Item) (int64, error) {
	if item == nil {
		return 0, types.ErrInvalidData
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now().UTC()
	item.ID = s.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.items[item.ID] = *item
	return item.ID, nil
}

func (s *Store) GetItem(_ context.Context, id int64) (*types.Item, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &it, nil
}

func (s *Store) UpdateItem(_ context.Context, item *types.Item) error {
	if item == nil {
		return types.ErrInvalidData
	}
	if item.ID <= 0 {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[item.ID]
	if !ok {
		return types.ErrNotFound
	}
	item.CreatedAt = old.CreatedAt
	item.UpdatedAt = s.now().UTC()
	s.items[item.ID] = *item
	return nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.items, id)
	delete(s.attrs, id)
	return nil
}

func (s *Store) ListItems(_ context.Context, q types.ListQuery) ([]*types.Item, error) {
	s.mu.RLock()
	var out []*types.Item
	for _, it := range s.items {
		if q.Type != types.TypeUnknown && it.Type != q.Type {
			continue
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, it.Status) {
			continue
		}
		if q.Slug != "" && it.Slug != q.Slug {
			continue
		}
		cp := it
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	if q.OrderBy == types.OrderTitleAsc {
		sort.Slice(out, func(i, j int) bool {
			a, b := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
			if a != b {
				return a < b
			}
			return out[i].ID < out[j].ID
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*types.Item{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []*types.Item{}
	}
	return out, nil
}

func (s *Store) GetAttribute(_ context.Context, id int64, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.attrs[id][key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (s *Store) SetAttribute(_ context.Context, id int64, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidData
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return types.ErrNotFound
	}
	m, ok := s.attrs[id]
	if !ok {
		m = make(map[string][]byte)
		s.attrs[id] = m
	}
	m[key] = slices.Clone(value)
	return nil
}

func (s *Store) DeleteAttribute(_ context.Context, id int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attrs[id], key)
	return nil
}

func (s *Store) Attributes(_ context.Context, id int64) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.attrs[id]))
	for k, v := range s.attrs[id] {
		out[k] = slices.Clone(v)
	}
	return out, nil
}

func (s *Store) GetOption(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.options[name]
	return v, ok, nil
}

func (s *Store) SetOption(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options[name] = value
	return nil
}
