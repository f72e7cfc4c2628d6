package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

func newTestBadgerCache(t *testing.T, dir string) *BadgerCache {
	t.Helper()
	cache, err := NewBadgerCache(dir, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestBadgerCache_RequiresPath(t *testing.T) {
	_, err := NewBadgerCache("", logging.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBadgerCache_RoundTrip(t *testing.T) {
	cache := newTestBadgerCache(t, t.TempDir())
	ctx := context.Background()

	texts := []string{"alpha", "beta"}
	vectors := [][]float32{{0.1, -0.2, 0.3}, {1, 2, 3}}
	cache.SetMany(ctx, texts, "model-a", vectors)

	found := cache.GetMany(ctx, []string{"alpha", "beta", "gamma"}, "model-a")
	require.Len(t, found, 2)
	assert.Equal(t, []float32{0.1, -0.2, 0.3}, found["alpha"])
	assert.Equal(t, []float32{1, 2, 3}, found["beta"])
}

func TestBadgerCache_ModelsAreIsolated(t *testing.T) {
	cache := newTestBadgerCache(t, t.TempDir())
	ctx := context.Background()

	cache.SetMany(ctx, []string{"alpha"}, "model-a", [][]float32{{1}})

	assert.Empty(t, cache.GetMany(ctx, []string{"alpha"}, "model-b"))
}

func TestBadgerCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewBadgerCache(dir, logging.NewNop())
	require.NoError(t, err)
	first.SetMany(ctx, []string{"alpha"}, "m", [][]float32{{7, 8, 9}})
	require.NoError(t, first.Close())

	second := newTestBadgerCache(t, dir)
	found := second.GetMany(ctx, []string{"alpha"}, "m")
	require.Len(t, found, 1)
	assert.Equal(t, []float32{7, 8, 9}, found["alpha"])
}

func TestBadgerCache_LastWriteWins(t *testing.T) {
	cache := newTestBadgerCache(t, t.TempDir())
	ctx := context.Background()

	cache.SetMany(ctx, []string{"alpha"}, "m", [][]float32{{1}})
	cache.SetMany(ctx, []string{"alpha"}, "m", [][]float32{{2}})

	found := cache.GetMany(ctx, []string{"alpha"}, "m")
	assert.Equal(t, []float32{2}, found["alpha"])
}

func TestVectorEncoding_RoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.0e-7}

	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestVectorEncoding_EmptyVector(t *testing.T) {
	decoded, err := decodeVector(encodeVector([]float32{}))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeVector_RejectsTruncatedData(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 4")
}
