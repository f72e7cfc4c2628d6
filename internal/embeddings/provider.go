package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// Provider is the interface implemented by embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for a batch of document texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Model returns the model name the provider embeds with.
	Model() string
	// Close releases resources held by the provider.
	Close() error
}

// NewProvider assembles an embedding provider from configuration.
//
// The base provider is selected by cfg.Provider ("fastembed" or
// "openai"), then wrapped with a client-side rate limiter when
// cfg.RateLimit is set, metrics instrumentation, and the embedding
// cache when cfg.CacheEnabled is set. Close on the returned provider
// releases the whole chain, including a persistent cache.
func NewProvider(cfg config.EmbeddingsConfig, logger *logging.Logger) (Provider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("embeddings")

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	warning, err := ValidateModel(model)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		logger.Warn(context.Background(), warning)
	}

	modelCacheDir, err := config.ExpandPath(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var base Provider
	switch cfg.Provider {
	case "", "fastembed":
		base, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:     model,
			CacheDir:  modelCacheDir,
			BatchSize: cfg.BatchSize,
		})
	case "openai":
		base, err = NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     model,
			APIKey:    cfg.APIKey.Value(),
			BatchSize: cfg.BatchSize,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (valid providers: fastembed, openai)", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	provider := base
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		provider = newRateLimitedProvider(provider, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	metrics := NewMetrics(logger)
	provider = newMeasuredProvider(provider, metrics)

	if cfg.CacheEnabled {
		cache, err := NewCache(cfg, logger)
		if err != nil {
			base.Close()
			return nil, err
		}
		provider = NewCachedProvider(provider, cache, metrics)
	}

	return provider, nil
}

// rateLimitedProvider waits on a token-bucket limiter before each
// provider call. Dimension, Model, and Close pass through.
type rateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

func newRateLimitedProvider(p Provider, limiter *rate.Limiter) *rateLimitedProvider {
	return &rateLimitedProvider{Provider: p, limiter: limiter}
}

func (p *rateLimitedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.EmbedDocuments(ctx, texts)
}

func (p *rateLimitedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.EmbedQuery(ctx, text)
}
