package transfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/internal/memstore"
	"github.com/mesh-intelligence/organizational/internal/meta"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.calls++
	return nil
}

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	clock := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	s := memstore.New(memstore.WithClock(func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}))

	person := &types.Item{Type: types.TypePerson, Title: "Ada Lovelace", Slug: "ada", Status: types.StatusPublish}
	_, err := s.CreateItem(ctx, person)
	require.NoError(t, err)
	project := &types.Item{Type: types.TypeProject, Title: "Engine", Slug: "engine", Status: types.StatusDraft}
	_, err = s.CreateItem(ctx, project)
	require.NoError(t, err)

	require.NoError(t, meta.SetString(ctx, s, person.ID, types.AttrUniqueID, "p1"))
	require.NoError(t, meta.SetIDs(ctx, s, person.ID, "_project_ids", []types.StableID{"x1"}))
	require.NoError(t, meta.SetString(ctx, s, project.ID, types.AttrUniqueID, "x1"))
	require.NoError(t, meta.SetIDs(ctx, s, project.ID, "_person_ids", []types.StableID{"p1"}))
	require.NoError(t, s.SetAttribute(ctx, project.ID, "legacy", []byte("not json")))
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seed(t)

	var buf bytes.Buffer
	st, err := New(src, nil, Options{}).Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Items)
	assert.Equal(t, 5, st.Attributes)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"person"`, "oldest item first")

	// Occupy storage id 1 so imported items are renumbered.
	dst := memstore.New()
	_, err = dst.CreateItem(ctx, &types.Item{Type: types.TypeEntity, Title: "existing"})
	require.NoError(t, err)

	inv := &countingInvalidator{}
	st, err = New(dst, inv, Options{}).Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Items)
	assert.Zero(t, st.Skipped)
	assert.Equal(t, 1, inv.calls)

	people, err := dst.ListItems(ctx, types.ListQuery{Type: types.TypePerson})
	require.NoError(t, err)
	require.Len(t, people, 1)
	ada := people[0]
	assert.NotEqual(t, int64(1), ada.ID)
	assert.Equal(t, "Ada Lovelace", ada.Title)
	assert.Equal(t, types.StatusPublish, ada.Status)
	assert.Equal(t, 2023, ada.CreatedAt.Year())

	uid, err := meta.UniqueID(ctx, dst, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StableID("p1"), uid)
	ids, err := meta.GetIDs(ctx, dst, ada.ID, "_project_ids")
	require.NoError(t, err)
	assert.Equal(t, []types.StableID{"x1"}, ids)

	projects, err := dst.ListItems(ctx, types.ListQuery{Type: types.TypeProject})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	legacy, err := meta.GetString(ctx, dst, projects[0].ID, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "not json", legacy)
}

func TestImportSkipsBadLines(t *testing.T) {
	ctx := context.Background()
	input := strings.Join([]string{
		`{"type":"person","title":"ok","status":"publish"}`,
		``,
		`not json`,
		`["array"]`,
		`{"type":"widget","title":"unknown type"}`,
		`{"type":"entity","title":"bad status","status":"archived"}`,
		`{"type":"org_organization","title":"query var type"}`,
	}, "\n")

	dst := memstore.New()
	st, err := New(dst, nil, Options{}).Import(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Items)
	assert.Equal(t, 4, st.Skipped)

	entities, err := dst.ListItems(ctx, types.ListQuery{Type: types.TypeEntity})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, types.StatusDraft, entities[0].Status)
}

func TestImportDoesNotMintIdentities(t *testing.T) {
	ctx := context.Background()
	dst := memstore.New()
	_, err := New(dst, nil, Options{}).Import(ctx, strings.NewReader(`{"type":"project","title":"no id","status":"publish"}`))
	require.NoError(t, err)

	items, err := dst.ListItems(ctx, types.ListQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	uid, err := meta.UniqueID(ctx, dst, items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, uid)
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"snapshot.jsonl", "snapshot.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), name)

			st, err := New(seed(t), nil, Options{}).ExportFile(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, 2, st.Items)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			if strings.HasSuffix(name, CompressedSuffix) {
				assert.False(t, bytes.HasPrefix(raw, []byte("{")), "compressed output")
			} else {
				assert.True(t, bytes.HasPrefix(raw, []byte("{")))
			}

			dst := memstore.New()
			st, err = New(dst, nil, Options{}).ImportFile(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, 2, st.Items)
		})
	}
}

func TestImportFileMissing(t *testing.T) {
	_, err := New(memstore.New(), nil, Options{}).ImportFile(context.Background(), filepath.Join(t.TempDir(), "none.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
