package embeddings

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelDimension_Registered(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"sentence-transformers/all-MiniLM-L6-v2", 384},
		{"BAAI/bge-small-en-v1.5", 384},
		{"sentence-transformers/all-mpnet-base-v2", 768},
		{"BAAI/bge-base-en-v1.5", 768},
		{"thenlper/gte-base", 768},
		{"BAAI/bge-large-en-v1.5", 1024},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelDimension(tt.model))
		})
	}
}

func TestModelDimension_HeuristicFallback(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  int
	}{
		{"base variant", "acme/embed-base-v2", 768},
		{"large variant", "acme/embed-large-v2", 1024},
		{"small variant", "acme/embed-small-v2", 384},
		{"mini variant", "acme/my-mini-model", 384},
		{"uppercase markers", "acme/Embed-LARGE", 1024},
		{"no marker defaults to 384", "acme/mystery", 384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelDimension(tt.model))
		})
	}
}

func TestDefaultModelIsRegistered(t *testing.T) {
	_, ok := registeredModels[DefaultModel]
	assert.True(t, ok)
	assert.Equal(t, 384, ModelDimension(DefaultModel))
}

func TestValidateModel(t *testing.T) {
	tests := []struct {
		name        string
		model       string
		wantWarning bool
		wantError   bool
	}{
		{name: "registered model", model: "BAAI/bge-small-en-v1.5"},
		{name: "registered openai model", model: "text-embedding-3-small"},
		{name: "unregistered openai-style name", model: "text-embedding-4-hypothetical"},
		{name: "custom huggingface model warns", model: "acme/custom-embedder", wantWarning: true},
		{name: "bare name rejected", model: "not-a-model", wantError: true},
		{name: "too many path segments rejected", model: "a/b/c", wantError: true},
		{name: "empty org rejected", model: "/model", wantError: true},
		{name: "empty name rejected", model: "org/", wantError: true},
		{name: "empty model rejected", model: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, err := ValidateModel(tt.model)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			if tt.wantWarning {
				assert.Contains(t, warning, tt.model)
			} else {
				assert.Empty(t, warning)
			}
		})
	}
}

func TestRegisteredModels_SortedAndComplete(t *testing.T) {
	names := RegisteredModels()
	assert.Len(t, names, len(registeredModels))
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, DefaultModel)
}
