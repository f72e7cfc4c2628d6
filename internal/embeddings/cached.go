package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// CachedProvider serves embeddings from a cache and batches all misses
// into a single call on the underlying provider. A text embedded once
// under a model is never embedded again while it stays cached.
type CachedProvider struct {
	provider Provider
	cache    Cache
	metrics  *Metrics
}

var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps provider with cache. metrics may be nil.
func NewCachedProvider(provider Provider, cache Cache, metrics *Metrics) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		metrics:  metrics,
	}
}

// EmbedDocuments returns one vector per input text, in input order.
// Cached texts are served without touching the provider; the remaining
// unique texts go out in one batch call and are cached on success.
func (p *CachedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	model := p.provider.Model()
	cached := p.cache.GetMany(ctx, texts, model)

	var hits, misses int
	var missing []string
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		if _, ok := cached[text]; ok {
			hits++
			continue
		}
		misses++
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		missing = append(missing, text)
	}
	p.metrics.RecordCache(ctx, model, hits, misses)

	if len(missing) > 0 {
		vectors, err := p.provider.EmbedDocuments(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(missing))
		}
		p.cache.SetMany(ctx, missing, model, vectors)
		for i, text := range missing {
			cached[text] = vectors[i]
		}
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = cached[text]
	}
	return out, nil
}

// EmbedQuery returns the cached vector for text when present, otherwise
// embeds and caches it.
func (p *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	model := p.provider.Model()
	if cached := p.cache.GetMany(ctx, []string{text}, model); len(cached) > 0 {
		p.metrics.RecordCache(ctx, model, 1, 0)
		return cached[text], nil
	}
	p.metrics.RecordCache(ctx, model, 0, 1)

	vector, err := p.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.SetMany(ctx, []string{text}, model, [][]float32{vector})
	return vector, nil
}

// Dimension returns the underlying provider's dimension.
func (p *CachedProvider) Dimension() int {
	return p.provider.Dimension()
}

// Model returns the underlying provider's model name.
func (p *CachedProvider) Model() string {
	return p.provider.Model()
}

// Close releases the provider and the cache.
func (p *CachedProvider) Close() error {
	return errors.Join(p.provider.Close(), p.cache.Close())
}
