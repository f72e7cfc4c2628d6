package embeddings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(config.EmbeddingsConfig{Provider: "cohere"}, logging.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "fastembed, openai")
}

func TestNewProvider_UnknownModelRejected(t *testing.T) {
	cfg := config.EmbeddingsConfig{Provider: "openai", Model: "definitely-not-a-model"}
	_, err := NewProvider(cfg, logging.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_OpenAIChain(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
	}

	provider, err := NewProvider(cfg, logging.NewNop())
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "text-embedding-3-small", provider.Model())
	assert.Equal(t, 1536, provider.Dimension())
}

func TestNewProvider_DefaultsModel(t *testing.T) {
	provider, err := NewProvider(config.EmbeddingsConfig{Provider: "openai"}, logging.NewNop())
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, DefaultModel, provider.Model())
	assert.Equal(t, 384, provider.Dimension())
}

func TestNewProvider_CacheEnabledWrapsProvider(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider:      "openai",
		Model:         "BAAI/bge-small-en-v1.5",
		RateLimit:     10,
		CacheEnabled:  true,
		CacheBackend:  "memory",
		CacheCapacity: 100,
	}

	provider, err := NewProvider(cfg, logging.NewNop())
	require.NoError(t, err)
	defer provider.Close()

	assert.IsType(t, (*CachedProvider)(nil), provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", provider.Model())
}

func TestNewProvider_BadCacheBackendFails(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider:     "openai",
		Model:        "BAAI/bge-small-en-v1.5",
		CacheEnabled: true,
		CacheBackend: "redis",
	}

	_, err := NewProvider(cfg, logging.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_CustomModelWarns(t *testing.T) {
	logger, logs := logging.NewTestLogger()
	cfg := config.EmbeddingsConfig{
		Provider: "openai",
		Model:    "acme/custom-embedder",
	}

	provider, err := NewProvider(cfg, logger)
	require.NoError(t, err)
	defer provider.Close()

	assert.GreaterOrEqual(t, logs.FilterMessageSnippet("custom model").Len(), 1)
}

func TestRateLimitedProvider_PassesThrough(t *testing.T) {
	fake := &fakeProvider{}
	limited := newRateLimitedProvider(fake, rate.NewLimiter(rate.Limit(1000), 10))
	ctx := context.Background()

	vectors, err := limited.EmbedDocuments(ctx, []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)

	vector, err := limited.EmbedQuery(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, fake.vectorFor("beta"), vector)

	assert.Equal(t, fake.Dimension(), limited.Dimension())
	assert.Equal(t, fake.Model(), limited.Model())
}

func TestRateLimitedProvider_ContextCancelled(t *testing.T) {
	fake := &fakeProvider{}
	limited := newRateLimitedProvider(fake, rate.NewLimiter(rate.Limit(1), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limited.EmbedDocuments(ctx, []string{"alpha"})
	require.Error(t, err)
	assert.Zero(t, fake.batchCount(), "cancelled call must not reach the provider")
}

func TestRateLimitedProvider_Throttles(t *testing.T) {
	fake := &fakeProvider{}
	// 20 req/s with burst 1: the second call waits ~50ms.
	limited := newRateLimitedProvider(fake, rate.NewLimiter(rate.Limit(20), 1))
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := limited.EmbedQuery(ctx, "q")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestMeasuredProvider_PassesThrough(t *testing.T) {
	fake := &fakeProvider{}
	measured := newMeasuredProvider(fake, NewMetrics(logging.NewNop()))
	ctx := context.Background()

	vectors, err := measured.EmbedDocuments(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	vector, err := measured.EmbedQuery(ctx, "gamma")
	require.NoError(t, err)
	assert.Equal(t, fake.vectorFor("gamma"), vector)
}

func TestMeasuredProvider_ErrorPropagates(t *testing.T) {
	fake := &fakeProvider{embedErr: ErrEmbeddingFailed}
	measured := newMeasuredProvider(fake, NewMetrics(logging.NewNop()))

	_, err := measured.EmbedDocuments(context.Background(), []string{"alpha"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestMetrics_NilReceiverSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(context.Background(), "m", "embed_documents", time.Now(), 3, nil)
		m.RecordCache(context.Background(), "m", 1, 2)
	})
}
