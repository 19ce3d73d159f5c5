package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/repository/graph"
	"github.com/everest-org/everest/resource"
	"github.com/everest-org/everest/testmodel"
)

func newMapper(t *testing.T) *graph.TypeMapper {
	t.Helper()
	reg := resource.NewRegistry()
	require.NoError(t, testmodel.Register(reg))
	rt, err := reg.TypeByTag("myentity")
	require.NoError(t, err)
	return graph.NewTypeMapper(rt)
}

func TestCompileFilter(t *testing.T) {
	mapper := newMapper(t)

	cases := []struct {
		name   string
		spec   querying.FilterSpecification
		clause string
		params map[string]any
	}{
		{
			"equal-to",
			querying.EqualTo("Text", "abc"),
			"n.`text` = $p0",
			map[string]any{"p0": "abc"},
		},
		{
			"starts-with",
			querying.StartsWith("Text", "ab"),
			"n.`text` STARTS WITH $p0",
			map[string]any{"p0": "ab"},
		},
		{
			"contained",
			querying.Contained("Number", []any{1, 2}),
			"n.`number` IN $p0",
			map[string]any{"p0": []any{1, 2}},
		},
		{
			"in-range",
			querying.InRange("Number", 1, 10),
			"($p0 <= n.`number` AND n.`number` <= $p1)",
			map[string]any{"p0": 1, "p1": 10},
		},
		{
			"conjunction",
			querying.And(querying.EqualTo("Text", "a"), querying.GreaterThan("Number", 3)),
			"(n.`text` = $p0 AND n.`number` > $p1)",
			map[string]any{"p0": "a", "p1": 3},
		},
		{
			"negated disjunction",
			querying.Not(querying.Or(querying.EqualTo("Text", "a"), querying.EqualTo("Text", "b"))),
			"(NOT (n.`text` = $p0 OR n.`text` = $p1))",
			map[string]any{"p0": "a", "p1": "b"},
		},
	}

	for _, item := range cases {
		t.Run(item.name, func(t *testing.T) {
			clause, params, err := graph.CompileFilter(item.spec, mapper.Property)

			require.NoError(t, err)
			assert.Equal(t, item.clause, clause)
			assert.Equal(t, item.params, params)
		})
	}
}

func TestCompileFilterUnmappedAttribute(t *testing.T) {
	mapper := newMapper(t)

	// Nested attributes have no node property in the derived mapping.
	_, _, err := graph.CompileFilter(querying.EqualTo("Parent.Text", "x"), mapper.Property)

	assert.ErrorIs(t, err, graph.ErrUnmappedAttribute)
}

func TestCompileOrder(t *testing.T) {
	mapper := newMapper(t)

	order, err := graph.CompileOrder(querying.OrderBy(
		querying.Asc("Text"),
		querying.Desc("Number"),
	), mapper.Property)

	require.NoError(t, err)
	assert.Equal(t, "n.`text`, n.`number` DESC", order)
}

func TestTypeMapperProperties(t *testing.T) {
	mapper := newMapper(t)

	assert.Equal(t, "myentity", mapper.Label())

	ent := testmodel.NewMyEntity(3)
	props, err := mapper.ToProperties(ent)
	require.NoError(t, err)
	assert.Equal(t, "3", props["slug"])
	assert.Equal(t, 3, props["id"])
	assert.Equal(t, testmodel.DefaultText, props["text"])

	back, err := mapper.FromProperties(map[string]any{
		"id":     int64(3),
		"text":   "restored",
		"number": int64(7),
	})
	require.NoError(t, err)
	restored, ok := back.(*testmodel.MyEntity)
	require.True(t, ok)
	assert.Equal(t, 3, restored.EntityID)
	assert.Equal(t, "restored", restored.Text)
	assert.Equal(t, 7, restored.Number)
}
