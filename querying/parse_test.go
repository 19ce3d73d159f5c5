package querying_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everest-org/everest/querying"
)

func TestParseFilterSingle(t *testing.T) {
	spec, err := querying.ParseFilter("text:equal-to:\"abc\"")

	require.NoError(t, err)
	value, ok := spec.(*querying.ValueFilter)
	require.True(t, ok)
	assert.Equal(t, "text", value.Attribute)
	assert.Equal(t, querying.OpEqualTo, value.Operator)
	assert.Equal(t, "abc", value.Value)
}

func TestParseFilterValueTypes(t *testing.T) {
	cases := []struct {
		name     string
		criteria string
		expect   any
	}{
		{"integer", "number:equal-to:17", 17},
		{"boolean", "flag:equal-to:true", true},
		{"quoted string", "text:equal-to:\"17\"", "17"},
		{"timestamp", "stamp:equal-to:2024-03-01T12:00:00Z",
			time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		{"bare text", "text:equal-to:abc", "abc"},
	}

	for _, item := range cases {
		t.Run(item.name, func(t *testing.T) {
			spec, err := querying.ParseFilter(item.criteria)

			require.NoError(t, err)
			value, ok := spec.(*querying.ValueFilter)
			require.True(t, ok)
			assert.Equal(t, item.expect, value.Value)
		})
	}
}

func TestParseFilterDisjunction(t *testing.T) {
	spec, err := querying.ParseFilter("number:equal-to:1,2")

	require.NoError(t, err)
	or, ok := spec.(*querying.Disjunction)
	require.True(t, ok)
	left := or.Left.(*querying.ValueFilter)
	right := or.Right.(*querying.ValueFilter)
	assert.Equal(t, 1, left.Value)
	assert.Equal(t, 2, right.Value)
}

func TestParseFilterConjunction(t *testing.T) {
	spec, err := querying.ParseFilter("text:starts-with:\"ab\"~number:greater-than:3")

	require.NoError(t, err)
	and, ok := spec.(*querying.Conjunction)
	require.True(t, ok)
	left := and.Left.(*querying.ValueFilter)
	right := and.Right.(*querying.ValueFilter)
	assert.Equal(t, querying.OpStartsWith, left.Operator)
	assert.Equal(t, querying.OpGreaterThan, right.Operator)
}

func TestParseFilterInRange(t *testing.T) {
	spec, err := querying.ParseFilter("number:in-range:1-10")

	require.NoError(t, err)
	value, ok := spec.(*querying.ValueFilter)
	require.True(t, ok)
	assert.Equal(t, querying.Range{From: 1, To: 10}, value.Value)
}

func TestParseFilterQuotedComma(t *testing.T) {
	spec, err := querying.ParseFilter("text:equal-to:\"a,b\"")

	require.NoError(t, err)
	value, ok := spec.(*querying.ValueFilter)
	require.True(t, ok)
	assert.Equal(t, "a,b", value.Value)
}

func TestParseFilterErrors(t *testing.T) {
	cases := []string{
		"",
		"text",
		"text:equal-to",
		"text:no-such-op:1",
		":equal-to:1",
		"number:in-range:5",
	}

	for _, criteria := range cases {
		t.Run(criteria, func(t *testing.T) {
			_, err := querying.ParseFilter(criteria)

			assert.ErrorIs(t, err, querying.ErrBadCriteria)
		})
	}
}

func TestParseOrder(t *testing.T) {
	spec, err := querying.ParseOrder("text:asc~number:desc")

	require.NoError(t, err)
	conj, ok := spec.(*querying.OrderConjunction)
	require.True(t, ok)
	asc := conj.Left.(*querying.Ascending)
	desc := conj.Right.(*querying.Descending)
	assert.Equal(t, "text", asc.Attribute)
	assert.Equal(t, "number", desc.Attribute)
}

func TestParseOrderErrors(t *testing.T) {
	for _, criteria := range []string{"", "text", "text:sideways"} {
		t.Run(criteria, func(t *testing.T) {
			_, err := querying.ParseOrder(criteria)

			assert.ErrorIs(t, err, querying.ErrBadCriteria)
		})
	}
}
