//go:build cgo

package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFastEmbedProvider_UnsupportedModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "acme/unknown-model"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "not supported by fastembed")
}

func TestFastembedModels_AllHaveDimensions(t *testing.T) {
	for name, model := range fastembedModels {
		_, ok := fastembedDimensions[model]
		assert.True(t, ok, "model %q has no dimension", name)
	}
}

func TestFastembedDimensions_AgreeWithRegistry(t *testing.T) {
	// Models known to both tables must report the same dimension.
	for name, model := range fastembedModels {
		if _, registered := registeredModels[name]; !registered {
			continue
		}
		assert.Equal(t, registeredModels[name], fastembedDimensions[model], "dimension mismatch for %q", name)
	}
}
