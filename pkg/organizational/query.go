package organizational

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/internal/sanitize"
	"github.com/mesh-intelligence/organizational/internal/transfer"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// ArchiveLimit caps the number of items Archive returns.
const ArchiveLimit = 2000

// VersionOption is the option holding the last recorded schema version.
const VersionOption = "organizational_version"

// flushBelow is the oldest version whose cached directories are still
// readable.
const flushBelow = "v1.0.0"

// FilterByRelated returns the storage ids of the listType items associated
// with the published relatedType item whose slug is slug. It returns an
// empty slice when no such item exists or listType is not associated with
// relatedType.
func (s *Service) FilterByRelated(ctx context.Context, listType, relatedType types.ObjectType, slug string) ([]int64, error) {
	slug = sanitize.Title(slug)
	if slug == "" || !s.registry.IsEnabled(relatedType) {
		return []int64{}, nil
	}
	matches, err := s.store.ListItems(ctx, types.ListQuery{
		Type:     relatedType,
		Statuses: []string{types.StatusPublish},
		Slug:     slug,
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("finding %s %q: %w", relatedType, slug, err)
	}
	if len(matches) == 0 {
		return []int64{}, nil
	}

	dir, ok, err := s.reader.ResolveItem(ctx, matches[0], types.BaseSlot(listType))
	if err != nil || !ok {
		return []int64{}, err
	}
	out := make([]int64, 0, dir.Len())
	for _, e := range dir.Entries() {
		out = append(out, e.StorageID)
	}
	return out, nil
}

// Archive returns up to ArchiveLimit published items of t in archive
// order: people by last name, projects and entities by title, and
// publications newest first.
func (s *Service) Archive(ctx context.Context, t types.ObjectType) ([]*types.Item, error) {
	if !s.registry.IsEnabled(t) {
		return nil, fmt.Errorf("%w: %s", types.ErrTypeDisabled, t)
	}
	items, err := s.store.ListItems(ctx, types.ListQuery{
		Type:     t,
		Statuses: []string{types.StatusPublish},
		Limit:    ArchiveLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s archive: %w", t, err)
	}

	switch t {
	case types.TypePublication:
		return items, nil
	case types.TypePerson:
		keys := make(map[int64]string, len(items))
		for _, it := range items {
			last, err := meta.GetString(ctx, s.store, it.ID, types.FieldAttr(t, "last_name"))
			if err != nil {
				return nil, err
			}
			if last == "" {
				last = lastWord(it.Title)
			}
			keys[it.ID] = last
		}
		sortCollated(items, func(it *types.Item) string { return keys[it.ID] })
	default:
		sortCollated(items, func(it *types.Item) string { return it.Title })
	}
	return items, nil
}

// sortCollated orders items by key using English collation, breaking
// ties by title.
func sortCollated(items []*types.Item, key func(*types.Item) string) {
	c := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b *types.Item) int {
		if n := c.CompareString(key(a), key(b)); n != 0 {
			return n
		}
		return c.CompareString(a.Title, b.Title)
	})
}

func lastWord(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Upgrade records Version in the option store. Directories cached by a
// version older than 1.0.0 are flushed first. It returns the previously
// recorded version, "0.0.0" when none was stored.
func (s *Service) Upgrade(ctx context.Context) (string, error) {
	if s.options == nil {
		return "", nil
	}
	prev, ok, err := s.options.GetOption(ctx, VersionOption)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", VersionOption, err)
	}
	if !ok || prev == "" {
		prev = "0.0.0"
	}
	if prev == Version {
		return prev, nil
	}

	if semver.Compare("v"+prev, flushBelow) < 0 {
		if err := s.dirs.InvalidateAll(ctx); err != nil {
			return prev, err
		}
		s.log.Info().Str("from", prev).Msg("flushed object directories")
	}
	if err := s.options.SetOption(ctx, VersionOption, Version); err != nil {
		return prev, fmt.Errorf("writing %s: %w", VersionOption, err)
	}
	s.log.Info().Str("from", prev).Str("to", Version).Msg("upgrade recorded")
	return prev, nil
}

// Export writes a snapshot of every item to path. See transfer.ExportFile.
func (s *Service) Export(ctx context.Context, path string) (transfer.Stats, error) {
	return s.transfer.ExportFile(ctx, path)
}

// Import loads a snapshot from path. See transfer.ImportFile.
func (s *Service) Import(ctx context.Context, path string) (transfer.Stats, error) {
	return s.transfer.ImportFile(ctx, path)
}
