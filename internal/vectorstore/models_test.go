package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

func TestParseDistanceMetric(t *testing.T) {
	tests := []struct {
		input   string
		want    vectorstore.DistanceMetric
		wantErr bool
	}{
		{"cosine", vectorstore.MetricCosine, false},
		{"euclidean", vectorstore.MetricEuclidean, false},
		{"dot", vectorstore.MetricDot, false},
		{"", vectorstore.MetricCosine, false},
		{"manhattan", "", true},
		{"Cosine", "", true},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.input, func(t *testing.T) {
			got, err := vectorstore.ParseDistanceMetric(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, vectorstore.ErrInvalidMetric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCollectionName(t *testing.T) {
	valid := []string{"docs", "docs_v2", "a", "0start", "with-hyphen", "x1234567890"}
	for _, name := range valid {
		assert.NoError(t, vectorstore.ValidateCollectionName(name), name)
	}

	invalid := []string{"", "Docs", "-leading", "_leading", "has space", "a/b", "a.b", "über"}
	for _, name := range invalid {
		err := vectorstore.ValidateCollectionName(name)
		assert.ErrorIs(t, err, vectorstore.ErrInvalidCollectionName, name)
	}

	// 64 characters pass, 65 fail.
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	assert.NoError(t, vectorstore.ValidateCollectionName(string(long)))
	assert.Error(t, vectorstore.ValidateCollectionName(string(long)+"a"))
}

func TestSearchOptions_Validate(t *testing.T) {
	assert.NoError(t, vectorstore.SearchOptions{Limit: 5}.Validate())

	err := vectorstore.SearchOptions{Limit: 0}.Validate()
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)

	err = vectorstore.SearchOptions{Limit: -3}.Validate()
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)

	ok := float32(0.5)
	assert.NoError(t, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &ok}.Validate())

	edge0, edge1 := float32(0), float32(1)
	assert.NoError(t, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &edge0}.Validate())
	assert.NoError(t, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &edge1}.Validate())

	over := float32(1.01)
	assert.ErrorIs(t, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &over}.Validate(), vectorstore.ErrInvalidArgument)

	under := float32(-0.01)
	assert.ErrorIs(t, vectorstore.SearchOptions{Limit: 1, ScoreThreshold: &under}.Validate(), vectorstore.ErrInvalidArgument)
}

func TestDeleteSelector_Validate(t *testing.T) {
	assert.ErrorIs(t, vectorstore.DeleteSelector{}.Validate(), vectorstore.ErrInvalidArgument)
	assert.NoError(t, vectorstore.DeleteSelector{IDs: []string{"a"}}.Validate())
	assert.NoError(t, vectorstore.DeleteSelector{Filters: map[string]any{"k": "v"}}.Validate())
	assert.NoError(t, vectorstore.DeleteSelector{IDs: []string{"a"}, Filters: map[string]any{"k": "v"}}.Validate())
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, vectorstore.ErrCollectionNotFound, vectorstore.ErrNotFound)
	assert.ErrorIs(t, vectorstore.ErrDimensionMismatch, vectorstore.ErrInvalidArgument)
	assert.ErrorIs(t, vectorstore.ErrInvalidMetric, vectorstore.ErrInvalidArgument)
	assert.ErrorIs(t, vectorstore.ErrInvalidCollectionName, vectorstore.ErrInvalidArgument)
	assert.ErrorIs(t, vectorstore.ErrInvalidFilter, vectorstore.ErrInvalidArgument)

	assert.NotErrorIs(t, vectorstore.ErrBackendUnavailable, vectorstore.ErrInvalidArgument)
	assert.NotErrorIs(t, vectorstore.ErrCollectionExists, vectorstore.ErrNotFound)
}
