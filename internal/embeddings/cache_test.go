package embeddings

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

func cacheConfig(backend, path string, capacity int) config.EmbeddingsConfig {
	return config.EmbeddingsConfig{
		CacheEnabled:  true,
		CacheBackend:  backend,
		CachePath:     path,
		CacheCapacity: capacity,
	}
}

func TestCacheKey_Format(t *testing.T) {
	key := cacheKey("BAAI/bge-small-en-v1.5", "hello world")

	parts := strings.SplitN(key, ":", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "emb", parts[0])
	assert.Equal(t, "BAAI/bge-small-en-v1.5", parts[1])
	assert.Len(t, parts[2], 64)

	// Stable across calls, distinct across inputs.
	assert.Equal(t, key, cacheKey("BAAI/bge-small-en-v1.5", "hello world"))
	assert.NotEqual(t, key, cacheKey("BAAI/bge-small-en-v1.5", "hello worlds"))
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	cache, err := NewMemoryCache(10)
	require.NoError(t, err)
	ctx := context.Background()

	texts := []string{"alpha", "beta"}
	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}}
	cache.SetMany(ctx, texts, "model-a", vectors)

	found := cache.GetMany(ctx, []string{"alpha", "beta", "gamma"}, "model-a")
	require.Len(t, found, 2)
	assert.Equal(t, []float32{1, 2, 3}, found["alpha"])
	assert.Equal(t, []float32{4, 5, 6}, found["beta"])
	assert.NotContains(t, found, "gamma")
}

func TestMemoryCache_ModelsAreIsolated(t *testing.T) {
	cache, err := NewMemoryCache(10)
	require.NoError(t, err)
	ctx := context.Background()

	cache.SetMany(ctx, []string{"alpha"}, "model-a", [][]float32{{1}})

	assert.Empty(t, cache.GetMany(ctx, []string{"alpha"}, "model-b"))
	assert.Len(t, cache.GetMany(ctx, []string{"alpha"}, "model-a"), 1)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	cache, err := NewMemoryCache(10)
	require.NoError(t, err)
	ctx := context.Background()

	original := []float32{1, 2, 3}
	cache.SetMany(ctx, []string{"alpha"}, "m", [][]float32{original})

	// Mutating the caller's slice must not change the cached entry.
	original[0] = 99
	found := cache.GetMany(ctx, []string{"alpha"}, "m")
	assert.Equal(t, []float32{1, 2, 3}, found["alpha"])

	// Mutating a returned slice must not poison later reads.
	found["alpha"][1] = 99
	again := cache.GetMany(ctx, []string{"alpha"}, "m")
	assert.Equal(t, []float32{1, 2, 3}, again["alpha"])
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	cache, err := NewMemoryCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	cache.SetMany(ctx, []string{"a", "b", "c"}, "m", [][]float32{{1}, {2}, {3}})

	assert.Equal(t, 2, cache.Len())
	// Oldest entry evicted.
	assert.Empty(t, cache.GetMany(ctx, []string{"a"}, "m"))
	assert.Len(t, cache.GetMany(ctx, []string{"b", "c"}, "m"), 2)
}

func TestMemoryCache_SkipsMissingVectors(t *testing.T) {
	cache, err := NewMemoryCache(10)
	require.NoError(t, err)
	ctx := context.Background()

	// Fewer vectors than texts, and a nil vector in the middle.
	cache.SetMany(ctx, []string{"a", "b", "c"}, "m", [][]float32{{1}, nil})

	found := cache.GetMany(ctx, []string{"a", "b", "c"}, "m")
	require.Len(t, found, 1)
	assert.Contains(t, found, "a")
}

func TestMemoryCache_DefaultCapacity(t *testing.T) {
	cache, err := NewMemoryCache(0)
	require.NoError(t, err)
	assert.NotNil(t, cache)
	assert.NoError(t, cache.Close())
}

func TestNewCache_SelectsBackend(t *testing.T) {
	logger := logging.NewNop()

	t.Run("memory by default", func(t *testing.T) {
		cache, err := NewCache(cacheConfig("", "", 0), logger)
		require.NoError(t, err)
		defer cache.Close()
		assert.IsType(t, (*MemoryCache)(nil), cache)
	})

	t.Run("badger", func(t *testing.T) {
		cache, err := NewCache(cacheConfig("badger", t.TempDir(), 0), logger)
		require.NoError(t, err)
		defer cache.Close()
		assert.IsType(t, (*BadgerCache)(nil), cache)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewCache(cacheConfig("redis", "", 0), logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "memory, badger")
	})
}
