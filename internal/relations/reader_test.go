package relations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organizational/pkg/types"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.RegistryOptions{})
	person := f.add(t, types.TypePerson, "ada", "p")
	f.add(t, types.TypeProject, "old", "x")
	f.add(t, types.TypeProject, "new", "y")
	f.setIDs(t, person, "_project_ids", "x", "ghost", "y")

	tests := []struct {
		name    string
		owner   int64
		target  types.ObjectType
		wantOK  bool
		wantIDs []types.StableID
	}{
		{"directory order without dangling ids", person.ID, types.TypeProject, true, stableIDs("y", "x")},
		{"unset field", person.ID, types.TypeEntity, true, stableIDs()},
		{"own type", person.ID, types.TypePerson, false, nil},
		{"missing owner", 999, types.TypeProject, true, stableIDs()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, ok, err := f.reader.Resolve(ctx, tt.owner, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, dir)
				return
			}
			assert.Equal(t, tt.wantIDs, dir.IDs())
		})
	}
}

func TestResolveDisabledTarget(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{Enabled: []types.ObjectType{types.TypePerson, types.TypeProject}})
	person := f.add(t, types.TypePerson, "ada", "p")

	dir, ok, err := f.reader.Resolve(context.Background(), person.ID, types.TypePublication)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dir)
}

func TestResolveEntriesCarryStorageIDs(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{})
	person := f.add(t, types.TypePerson, "ada", "p")
	x := f.add(t, types.TypeProject, "engine", "x")
	f.setIDs(t, person, "_project_ids", "x")

	dir, ok, err := f.reader.Resolve(context.Background(), person.ID, types.TypeProject)
	require.NoError(t, err)
	require.True(t, ok)
	entry, found := dir.Lookup("x")
	require.True(t, found)
	assert.Equal(t, x.ID, entry.StorageID)
	assert.Equal(t, "engine", entry.Name)
}

func TestResolveSlotFabricatedSameType(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{
		Fabricated: []types.FabricatedSlot{{Name: "mentors", Base: types.TypePerson, Owners: []types.ObjectType{types.TypePerson}}},
	})
	ada := f.add(t, types.TypePerson, "ada", "a")
	f.add(t, types.TypePerson, "grace", "g")
	f.setIDs(t, ada, "_mentors_ids", "g", "nobody")

	slot, err := f.reg.LookupSlot("mentors")
	require.NoError(t, err)
	dir, ok, err := f.reader.ResolveSlot(context.Background(), ada.ID, slot)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stableIDs("g"), dir.IDs())
}

func TestSyncThenResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.RegistryOptions{})
	person := f.add(t, types.TypePerson, "ada", "p")
	project := f.add(t, types.TypeProject, "engine", "x")

	_, err := f.sync.Sync(ctx, stableIDs("x"), types.TypeProject, person, "p")
	require.NoError(t, err)

	people, ok, err := f.reader.Resolve(ctx, project.ID, types.TypePerson)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stableIDs("p"), people.IDs())

	projects, ok, err := f.reader.Resolve(ctx, person.ID, types.TypeProject)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stableIDs("x"), projects.IDs())

	_, err = f.sync.Sync(ctx, nil, types.TypeProject, person, "p")
	require.NoError(t, err)

	people, _, err = f.reader.Resolve(ctx, project.ID, types.TypePerson)
	require.NoError(t, err)
	assert.Zero(t, people.Len())
}

func TestWidget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.RegistryOptions{})
	project := f.add(t, types.TypeProject, "engine", "x")
	f.add(t, types.TypePerson, "Ada Lovelace", "a")
	f.add(t, types.TypePerson, "Grace Hopper", "g")
	f.add(t, types.TypePerson, "Alan Turing", "t")
	f.setIDs(t, project, "_person_ids", "a", "t")

	w, err := f.reader.Widget(ctx, project, types.BaseSlot(types.TypePerson), "")
	require.NoError(t, err)
	assert.Equal(t, "assign_people_ids", w.Field)
	assert.Equal(t, "t,a", w.Value)
	require.Len(t, w.Selected, 2)
	assert.Equal(t, "Alan Turing", w.Selected[0].Label)
	require.Len(t, w.Available, 1)
	assert.Equal(t, WidgetOption{Value: "g", Label: "Grace Hopper", URL: w.Available[0].URL}, w.Available[0])
}

func TestWidgetUnsavedOwner(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{})
	f.add(t, types.TypeEntity, "lab", "l")

	w, err := f.reader.Widget(context.Background(), &types.Item{Type: types.TypeProject}, types.BaseSlot(types.TypeEntity), "")
	require.NoError(t, err)
	assert.Empty(t, w.Selected)
	assert.Empty(t, w.Value)
	assert.Len(t, w.Available, 1)
}

func TestWidgetFabricatedSuffix(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{
		Fabricated: []types.FabricatedSlot{{Name: "lead_people", Base: types.TypePerson}},
	})
	project := f.add(t, types.TypeProject, "engine", "x")
	f.add(t, types.TypePerson, "ada", "a")
	f.add(t, types.TypePerson, "grace", "g")
	f.setIDs(t, project, "_lead_people_ids", "a")

	slot, err := f.reg.LookupSlot("lead_people")
	require.NoError(t, err)
	w, err := f.reader.Widget(context.Background(), project, slot, "")
	require.NoError(t, err)
	assert.Equal(t, "assign_lead_people_ids", w.Field)
	assert.Equal(t, "alead_people", w.Value)
	require.Len(t, w.Available, 1)
	assert.Equal(t, "glead_people", w.Available[0].Value)
}

func TestWidgetQuery(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{})
	project := f.add(t, types.TypeProject, "engine", "x")
	f.add(t, types.TypePerson, "Grace Hopper", "g")
	f.add(t, types.TypePerson, "Ada Lovelace", "a")
	f.add(t, types.TypePerson, "Adam Smith", "s")

	w, err := f.reader.Widget(context.Background(), project, types.BaseSlot(types.TypePerson), "  ada ")
	require.NoError(t, err)
	labels := make([]string, len(w.Available))
	for i, o := range w.Available {
		labels[i] = o.Label
	}
	assert.ElementsMatch(t, []string{"Ada Lovelace", "Adam Smith"}, labels)
}

func TestWidgetDisabledBase(t *testing.T) {
	f := newFixture(t, types.RegistryOptions{Enabled: []types.ObjectType{types.TypePerson, types.TypeProject}})
	project := f.add(t, types.TypeProject, "engine", "x")

	_, err := f.reader.Widget(context.Background(), project, types.BaseSlot(types.TypeEntity), "")
	assert.ErrorIs(t, err, types.ErrTypeDisabled)
}
