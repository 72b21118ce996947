// Package transfer exports every item with its attributes to a JSONL
// snapshot and imports such a snapshot into a store. Imported items get
// new storage ids; stable ids and relationship fields are copied verbatim,
// so associations survive the renumbering.
package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

// CompressedSuffix selects zstd compression in ExportFile and ImportFile.
const CompressedSuffix = ".zst"

const maxRecordSize = 64 * 1024 * 1024

// Invalidator drops every cached directory after an import.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Record is one line of a snapshot.
type Record struct {
	Type       types.ObjectType           `json:"type"`
	Title      string                     `json:"title"`
	Slug       string                     `json:"slug"`
	Status     string                     `json:"status"`
	CreatedAt  time.Time                  `json:"created_at"`
	Attributes map[string]json.RawMessage `json:"attributes"`
}

// Stats counts what an export or import processed.
type Stats struct {
	Items      int `json:"items"`
	Attributes int `json:"attributes"`
	Skipped    int `json:"skipped"`
}

// Options configures a Transfer.
type Options struct {
	Logger zerolog.Logger
}

// Transfer moves snapshots in and out of a store.
type Transfer struct {
	store types.ContentStore
	dirs  Invalidator
	log   zerolog.Logger
}

// New returns a Transfer. dirs may be nil when nothing is cached.
func New(store types.ContentStore, dirs Invalidator, opts Options) *Transfer {
	return &Transfer{store: store, dirs: dirs, log: opts.Logger}
}

// Export writes every item, oldest first, as one JSON line.
func (t *Transfer) Export(ctx context.Context, w io.Writer) (Stats, error) {
	var st Stats
	items, err := t.store.ListItems(ctx, types.ListQuery{})
	if err != nil {
		return st, fmt.Errorf("listing items: %w", err)
	}
	slices.Reverse(items)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, it := range items {
		attrs, err := t.store.Attributes(ctx, it.ID)
		if err != nil {
			return st, fmt.Errorf("reading attributes of item %d: %w", it.ID, err)
		}
		rec := Record{
			Type:       it.Type,
			Title:      it.Title,
			Slug:       it.Slug,
			Status:     it.Status,
			CreatedAt:  it.CreatedAt,
			Attributes: make(map[string]json.RawMessage, len(attrs)),
		}
		for k, v := range attrs {
			if !json.Valid(v) {
				// Preserve non-JSON values as strings.
				if v, err = json.Marshal(string(v)); err != nil {
					return st, err
				}
			}
			rec.Attributes[k] = v
		}
		if err := enc.Encode(rec); err != nil {
			return st, fmt.Errorf("encoding item %d: %w", it.ID, err)
		}
		st.Items++
		st.Attributes += len(attrs)
	}
	if err := bw.Flush(); err != nil {
		return st, err
	}
	t.log.Info().Int("items", st.Items).Int("attributes", st.Attributes).Msg("export complete")
	return st, nil
}

// Import reads a snapshot and creates one item per valid line. Lines that
// are not JSON objects or name an unknown type are skipped. No stable ids
// are minted. Every directory is invalidated once at the end.
func (t *Transfer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	var st Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		item, attrs, err := parseRecord(raw)
		if err != nil {
			st.Skipped++
			t.log.Warn().Err(err).Int("line", line).Msg("skipping snapshot record")
			continue
		}
		if _, err := t.store.CreateItem(ctx, item); err != nil {
			return st, fmt.Errorf("line %d: creating item: %w", line, err)
		}
		for _, a := range attrs {
			if err := t.store.SetAttribute(ctx, item.ID, a.key, a.value); err != nil {
				return st, fmt.Errorf("line %d: writing %s: %w", line, a.key, err)
			}
		}
		st.Items++
		st.Attributes += len(attrs)
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("reading snapshot: %w", err)
	}

	if t.dirs != nil {
		if err := t.dirs.InvalidateAll(ctx); err != nil {
			return st, fmt.Errorf("invalidating directories: %w", err)
		}
	}
	t.log.Info().Int("items", st.Items).Int("skipped", st.Skipped).Msg("import complete")
	return st, nil
}

type attribute struct {
	key   string
	value []byte
}

// parseRecord reads one snapshot line with gjson so unknown fields and
// attribute values pass through untouched.
func parseRecord(raw []byte) (*types.Item, []attribute, error) {
	if !gjson.ValidBytes(raw) {
		return nil, nil, fmt.Errorf("%w: not JSON", types.ErrInvalidRecord)
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return nil, nil, fmt.Errorf("%w: not an object", types.ErrInvalidRecord)
	}

	typ, err := types.ParseType(res.Get("type").String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInvalidRecord, err)
	}
	status := res.Get("status").String()
	if status == "" {
		status = types.StatusDraft
	}
	if !types.ValidStatus(status) {
		return nil, nil, fmt.Errorf("%w: status %q", types.ErrInvalidRecord, status)
	}

	item := &types.Item{
		Type:   typ,
		Title:  res.Get("title").String(),
		Slug:   res.Get("slug").String(),
		Status: status,
	}
	if ts := res.Get("created_at"); ts.Exists() {
		if created, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
			item.CreatedAt = created
		}
	}

	var attrs []attribute
	res.Get("attributes").ForEach(func(k, v gjson.Result) bool {
		attrs = append(attrs, attribute{key: k.String(), value: []byte(v.Raw)})
		return true
	})
	slices.SortFunc(attrs, func(a, b attribute) int { return strings.Compare(a.key, b.key) })
	return item, attrs, nil
}

// ExportFile writes a snapshot to path, zstd-compressed when path ends in
// CompressedSuffix.
func (t *Transfer) ExportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	var w io.Writer = f
	var zw *zstd.Encoder
	if strings.HasSuffix(path, CompressedSuffix) {
		if zw, err = zstd.NewWriter(f); err != nil {
			return Stats{}, fmt.Errorf("creating zstd writer: %w", err)
		}
		w = zw
	}

	st, err := t.Export(ctx, w)
	if err != nil {
		if zw != nil {
			zw.Close()
		}
		return st, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return st, fmt.Errorf("finishing zstd stream: %w", err)
		}
	}
	return st, f.Close()
}

// ImportFile reads a snapshot from path, decompressing when path ends in
// CompressedSuffix.
func (t *Transfer) ImportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedSuffix) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return Stats{}, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return t.Import(ctx, r)
}
