package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters_Equality(t *testing.T) {
	clauses, err := parseFilters(map[string]any{"category": "guide", "stars": 42})
	require.NoError(t, err)
	require.Len(t, clauses, 2)

	// Sorted by key for determinism.
	assert.Equal(t, "category", clauses[0].key)
	assert.Equal(t, "", clauses[0].op)
	assert.Equal(t, "guide", clauses[0].value)
	assert.Equal(t, "stars", clauses[1].key)
	assert.Equal(t, 42, clauses[1].value)
}

func TestParseFilters_Empty(t *testing.T) {
	clauses, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, clauses)

	clauses, err = parseFilters(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, clauses)
}

func TestParseFilters_Operators(t *testing.T) {
	clauses, err := parseFilters(map[string]any{
		"category": map[string]any{"$in": []any{"guide", "api"}},
		"status":   map[string]any{"$ne": "archived"},
		"stars":    map[string]any{"$gte": 100, "$lt": 500},
	})
	require.NoError(t, err)
	require.Len(t, clauses, 4)

	assert.Equal(t, opIn, clauses[0].op)
	assert.Equal(t, []any{"guide", "api"}, clauses[0].values)
	assert.Equal(t, opGte, clauses[1].op)
	assert.Equal(t, 100, clauses[1].value)
	assert.Equal(t, opLt, clauses[2].op)
	assert.Equal(t, opNe, clauses[3].op)
}

func TestParseFilters_TypedSliceOperands(t *testing.T) {
	clauses, err := parseFilters(map[string]any{"tag": map[string]any{"$in": []string{"a", "b"}}})
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, []any{"a", "b"}, clauses[0].values)

	clauses, err = parseFilters(map[string]any{"n": map[string]any{"$in": []int{1, 2}}})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, clauses[0].values)
}

func TestParseFilters_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]any
	}{
		{"boolean composition or", map[string]any{"$or": []any{}}},
		{"boolean composition and", map[string]any{"$and": []any{}}},
		{"unknown operator", map[string]any{"stars": map[string]any{"$near": 10}}},
		{"empty operator object", map[string]any{"stars": map[string]any{}}},
		{"in with non-list", map[string]any{"tag": map[string]any{"$in": "solo"}}},
		{"in with empty list", map[string]any{"tag": map[string]any{"$in": []any{}}}},
		{"nested literal object", map[string]any{"meta": map[string]any{"inner": "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilters(tt.filters)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestParseEqualityFilters(t *testing.T) {
	clauses, err := parseEqualityFilters(map[string]any{"category": "A"})
	require.NoError(t, err)
	assert.Len(t, clauses, 1)

	_, err = parseEqualityFilters(map[string]any{"stars": map[string]any{"$gte": 10}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Contains(t, err.Error(), "embedded backend")
}

func TestToFloat64(t *testing.T) {
	for _, v := range []any{int(3), int32(3), int64(3), float32(3), float64(3)} {
		n, ok := toFloat64(v)
		assert.True(t, ok)
		assert.Equal(t, float64(3), n)
	}

	_, ok := toFloat64("3")
	assert.False(t, ok)
}
