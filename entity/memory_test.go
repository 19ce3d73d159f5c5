package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/testmodel"
)

func newAggregate(t *testing.T, ents ...*testmodel.MyEntity) *entity.MemoryAggregate {
	t.Helper()
	agg := entity.NewMemoryAggregate(&testmodel.MyEntity{})
	for _, ent := range ents {
		require.NoError(t, agg.Add(ent))
	}
	return agg
}

func TestMemoryAggregateAddAndGet(t *testing.T) {
	agg := newAggregate(t, testmodel.NewMyEntity(1), testmodel.NewMyEntity(2))

	count, err := agg.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ent, err := agg.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, 1, ent.ID())

	ent, err = agg.GetBySlug("2")
	require.NoError(t, err)
	assert.Equal(t, "2", ent.Slug())

	_, err = agg.GetByID(3)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestMemoryAggregateAddValidation(t *testing.T) {
	agg := newAggregate(t, testmodel.NewMyEntity(1))

	err := agg.Add(testmodel.NewMyEntity(1))
	assert.ErrorIs(t, err, entity.ErrDuplicate)

	err = agg.Add(&testmodel.MyEntityChild{EntityID: 2})
	assert.ErrorIs(t, err, entity.ErrInvalidEntity)

	// New entities without an ID are accepted and get no slug check.
	err = agg.Add(&testmodel.MyEntity{Text: "new"})
	assert.NoError(t, err)
}

func TestMemoryAggregateRemove(t *testing.T) {
	first := testmodel.NewMyEntity(1)
	agg := newAggregate(t, first)

	require.NoError(t, agg.Remove(first))

	count, err := agg.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = agg.Remove(testmodel.NewMyEntity(9))
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestMemoryAggregateFilter(t *testing.T) {
	one := testmodel.NewMyEntity(1)
	one.Number = 10
	two := testmodel.NewMyEntity(2)
	two.Number = 20
	agg := newAggregate(t, one, two)

	require.NoError(t, agg.SetFilter(querying.GreaterThan("Number", 15)))

	ents, err := agg.Iterator()
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, 2, ents[0].ID())

	// The filter also scopes lookups.
	_, err = agg.GetByID(1)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, agg.SetFilter(nil))
	count, err := agg.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryAggregateOrderAndSlice(t *testing.T) {
	var ents []*testmodel.MyEntity
	for id, number := range map[int]int{1: 30, 2: 10, 3: 20} {
		ent := testmodel.NewMyEntity(id)
		ent.Number = number
		ents = append(ents, ent)
	}
	agg := newAggregate(t, ents...)

	require.NoError(t, agg.SetOrder(querying.Asc("Number")))

	ordered, err := agg.Iterator()
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{ordered[0].ID(), ordered[1].ID(), ordered[2].ID()})

	require.NoError(t, agg.SetSlice(&entity.Slice{Start: 1, Stop: 2}))
	sliced, err := agg.Iterator()
	require.NoError(t, err)
	require.Len(t, sliced, 1)
	assert.Equal(t, 3, sliced[0].ID())

	// Out of range slices clamp instead of failing.
	require.NoError(t, agg.SetSlice(&entity.Slice{Start: 2, Stop: 100}))
	sliced, err = agg.Iterator()
	require.NoError(t, err)
	assert.Len(t, sliced, 1)
}

func TestMemoryAggregateClone(t *testing.T) {
	agg := newAggregate(t, testmodel.NewMyEntity(1), testmodel.NewMyEntity(2))

	clone := agg.Clone()
	require.NoError(t, clone.SetFilter(querying.EqualTo("EntityID", 1)))

	count, err := clone.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The original keeps its own filter state.
	count, err = agg.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryAggregateCloneSharesStore(t *testing.T) {
	agg := newAggregate(t, testmodel.NewMyEntity(1))

	clone := agg.Clone()
	require.NoError(t, clone.Add(testmodel.NewMyEntity(2)))

	// Adds through a clone land in the shared store.
	count, err := agg.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ent, err := agg.GetByID(2)
	require.NoError(t, err)
	require.NoError(t, clone.Remove(ent))

	_, err = agg.GetByID(2)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestMemoryAggregateRelationship(t *testing.T) {
	parent := testmodel.NewMyEntity(1)
	parent.Children = []*testmodel.MyEntityChild{{EntityID: 1, Text: "first"}}

	agg := entity.NewMemoryAggregate(&testmodel.MyEntityChild{})
	agg.SetRelationship(&entity.Relationship{
		Parent: parent,
		Children: func() []entity.Entity {
			out := make([]entity.Entity, len(parent.Children))
			for i, child := range parent.Children {
				out[i] = child
			}
			return out
		},
		Append: func(ent entity.Entity) {
			parent.Children = append(parent.Children, ent.(*testmodel.MyEntityChild))
		},
		Remove: func(ent entity.Entity) {
			for i, child := range parent.Children {
				if child == ent {
					parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
					return
				}
			}
		},
	})

	require.NoError(t, agg.Add(&testmodel.MyEntityChild{EntityID: 2, Text: "second"}))
	assert.Len(t, parent.Children, 2)

	ent, err := agg.GetByID(2)
	require.NoError(t, err)
	require.NoError(t, agg.Remove(ent))
	assert.Len(t, parent.Children, 1)
}
