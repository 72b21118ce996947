package sqlite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

func TestOpenPersistsAcrossAttach(t *testing.T) {
	ctx := context.Background()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	store, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	id, err := store.CreateItem(ctx, &types.Item{Type: types.TypePerson, Title: "Ada", Slug: "ada", Status: types.StatusPublish})
	require.NoError(t, err)
	require.NoError(t, store.SetAttribute(ctx, id, types.AttrUniqueID, []byte("ada-1")))
	require.NoError(t, store.Detach())

	store, err = Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Detach()

	item, err := store.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", item.Title)
	v, err := store.GetAttribute(ctx, id, types.AttrUniqueID)
	require.NoError(t, err)
	assert.Equal(t, "ada-1", string(v))
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(types.Config{Backend: "paper"}, zerolog.Nop())
	assert.Error(t, err)
}
