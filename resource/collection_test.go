package resource_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/resource"
	"github.com/everest-org/everest/testmodel"
)

func newCollection(t *testing.T, ents ...*testmodel.MyEntity) *resource.Collection {
	t.Helper()
	reg := newRegistry(t)
	rt := entityType(t, reg)
	agg := entity.NewMemoryAggregate(&testmodel.MyEntity{})
	for _, ent := range ents {
		require.NoError(t, agg.Add(ent))
	}
	return rt.NewCollection(agg)
}

func TestCollectionPathAndRelation(t *testing.T) {
	col := newCollection(t)

	assert.Equal(t, "/my-entities", col.Path())
	assert.Equal(t, testmodel.RelMyEntity+"-collection", col.Relation())
	assert.Equal(t, "My Entities", col.Title())
}

func TestCollectionAddGetRemove(t *testing.T) {
	col := newCollection(t)

	m, err := col.CreateMember(testmodel.NewMyEntity(1))
	require.NoError(t, err)
	assert.Same(t, col, m.Parent())

	got, err := col.Get("1")
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	require.NoError(t, m.Delete())
	_, err = col.Get("1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCollectionWrongType(t *testing.T) {
	reg := newRegistry(t)
	col := newCollection(t)

	childType, err := reg.TypeByTag("myentitychild")
	require.NoError(t, err)
	child, err := childType.NewMember(&testmodel.MyEntityChild{EntityID: 1})
	require.NoError(t, err)

	err = col.Add(child)
	assert.ErrorIs(t, err, resource.ErrWrongEntity)
}

func TestCollectionFilterByResourceName(t *testing.T) {
	one := testmodel.NewMyEntity(1)
	one.Number = 10
	two := testmodel.NewMyEntity(2)
	two.Number = 20
	col := newCollection(t, one, two)

	require.NoError(t, col.SetFilter(querying.GreaterThan("number", 15)))

	members, err := col.Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "2", members[0].Name())
}

func TestCollectionFilterNestedAttribute(t *testing.T) {
	one := testmodel.NewMyEntity(1)
	one.Parent = &testmodel.MyEntityParent{EntityID: 3, Text: "match"}
	two := testmodel.NewMyEntity(2)
	col := newCollection(t, one, two)

	require.NoError(t, col.SetFilter(querying.EqualTo("parent.text", "match")))

	members, err := col.Members()
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "1", members[0].Name())
}

func TestCollectionFilterUnknownAttribute(t *testing.T) {
	col := newCollection(t)

	err := col.SetFilter(querying.EqualTo("nope", 1))

	assert.ErrorIs(t, err, resource.ErrUnknownAttribute)
}

func TestCollectionOrder(t *testing.T) {
	one := testmodel.NewMyEntity(1)
	one.Text = "b"
	two := testmodel.NewMyEntity(2)
	two.Text = "a"
	col := newCollection(t, one, two)

	require.NoError(t, col.SetOrder(querying.Desc("text")))

	members, err := col.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "1", members[0].Name())
	assert.Equal(t, "2", members[1].Name())
}

func TestCollectionSliceClampedToMaxLimit(t *testing.T) {
	col := newCollection(t, testmodel.NewMyEntity(1))

	require.NoError(t, col.SetSlice(&entity.Slice{Start: 0, Stop: 5000}))

	key := col.Slice()
	require.NotNil(t, key)
	assert.Equal(t, 1000, key.Stop)
}

func TestCollectionClone(t *testing.T) {
	col := newCollection(t, testmodel.NewMyEntity(1), testmodel.NewMyEntity(2))

	clone := col.Clone()
	require.NoError(t, clone.SetFilter(querying.EqualTo("id", 1)))

	length, err := clone.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	length, err = col.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestCollectionUpdateFrom(t *testing.T) {
	reg := newRegistry(t)
	rt := entityType(t, reg)
	agg := entity.NewMemoryAggregate(&testmodel.MyEntity{})
	keep := testmodel.NewMyEntity(1)
	drop := testmodel.NewMyEntity(2)
	require.NoError(t, agg.Add(keep))
	require.NoError(t, agg.Add(drop))
	col := rt.NewCollection(agg)

	updated := testmodel.NewMyEntity(1)
	updated.Text = "changed"
	updatedMember, err := rt.NewMember(updated)
	require.NoError(t, err)
	addedMember, err := rt.NewMember(&testmodel.MyEntity{Text: "fresh"})
	require.NoError(t, err)

	require.NoError(t, col.UpdateFrom([]*resource.Member{updatedMember, addedMember}))

	assert.Equal(t, "changed", keep.Text)
	length, err := col.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, length)
	_, err = col.Get("2")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCollectionUpdateFromUnknownID(t *testing.T) {
	reg := newRegistry(t)
	rt := entityType(t, reg)
	col := rt.NewCollection(entity.NewMemoryAggregate(&testmodel.MyEntity{}))

	stranger, err := rt.NewMember(testmodel.NewMyEntity(9))
	require.NoError(t, err)

	err = col.UpdateFrom([]*resource.Member{stranger})
	assert.ErrorIs(t, err, resource.ErrUpdateConflict)
}

func TestCollectionUpdateFromLinkStub(t *testing.T) {
	reg := newRegistry(t)
	rt := entityType(t, reg)
	agg := entity.NewMemoryAggregate(&testmodel.MyEntity{})
	existing := testmodel.NewMyEntity(3)
	existing.Text = "untouched"
	require.NoError(t, agg.Add(existing))
	col := rt.NewCollection(agg)

	stub, err := rt.LinkMember("3")
	require.NoError(t, err)

	require.NoError(t, col.UpdateFrom([]*resource.Member{stub}))

	// The stub asserts membership without overwriting content.
	assert.Equal(t, "untouched", existing.Text)
	length, err := col.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, length)
}
