package relations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// WidgetOption is one selectable or selected object in the assignment
// widget. Value carries the slot suffix for fabricated slots.
type WidgetOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Widget is the data behind an autocomplete assignment field: the objects
// already assigned, the objects that can still be added, and the hidden
// form value that submits the current selection.
type Widget struct {
	Slot      types.Slot     `json:"slot"`
	Field     string         `json:"field"`
	Selected  []WidgetOption `json:"selected"`
	Available []WidgetOption `json:"available"`
	Value     string         `json:"value"`
}

// Widget builds the assignment widget for owner and slot. A non-empty
// query narrows Available to fuzzy matches on the label, best first. An
// owner with ID 0 (not yet saved) has nothing selected.
func (r *Reader) Widget(ctx context.Context, owner *types.Item, slot types.Slot, query string) (*Widget, error) {
	dir, ok, err := r.dirs.Get(ctx, slot.Base)
	if err != nil {
		return nil, fmt.Errorf("load %s directory: %w", slot.Base, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTypeDisabled, slot.Base)
	}
	current, err := r.currentIDs(ctx, owner, slot)
	if err != nil {
		return nil, err
	}

	suffix := slot.Suffix()
	w := &Widget{
		Slot:      slot,
		Field:     slot.FormField(),
		Selected:  options(dir.Intersect(current), suffix),
		Available: options(dir.Exclude(current), suffix),
	}
	values := make([]string, len(w.Selected))
	for i, o := range w.Selected {
		values[i] = o.Value
	}
	w.Value = strings.Join(values, ",")

	if q := strings.TrimSpace(query); q != "" {
		w.Available = rank(w.Available, q)
	}
	return w, nil
}

func options(d *types.Directory, suffix string) []WidgetOption {
	entries := d.Entries()
	out := make([]WidgetOption, len(entries))
	for i, e := range entries {
		out[i] = WidgetOption{Value: string(e.ID) + suffix, Label: e.Name, URL: e.URL}
	}
	return out
}

func rank(opts []WidgetOption, query string) []WidgetOption {
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	sort.Stable(ranks)
	out := make([]WidgetOption, len(ranks))
	for i, m := range ranks {
		out[i] = opts[m.OriginalIndex]
	}
	return out
}
