package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// defaultCacheCapacity bounds the in-memory cache when no capacity is
// configured.
const defaultCacheCapacity = 100000

// Cache stores embeddings keyed by (text, model). Lookups and writes
// are best-effort: a failing backend degrades to cache misses, never to
// embedding errors. Implementations are safe for concurrent use.
type Cache interface {
	// GetMany returns cached vectors for the subset of texts already
	// embedded under model, keyed by the original text.
	GetMany(ctx context.Context, texts []string, model string) map[string][]float32

	// SetMany stores vectors for texts embedded under model. texts and
	// vectors correspond by index.
	SetMany(ctx context.Context, texts []string, model string, vectors [][]float32)

	// Close releases cache resources.
	Close() error
}

// NewCache builds the cache backend selected by cfg.CacheBackend.
func NewCache(cfg config.EmbeddingsConfig, logger *logging.Logger) (Cache, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return NewMemoryCache(cfg.CacheCapacity)
	case "badger":
		path, err := config.ExpandPath(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewBadgerCache(path, logger)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q (valid backends: memory, badger)", ErrInvalidConfig, cfg.CacheBackend)
	}
}

// cacheKey derives the storage key for one (text, model) pair. Texts
// are hashed so keys stay bounded regardless of chunk size.
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// MemoryCache is a capacity-bounded in-memory embedding cache with LRU
// eviction.
type MemoryCache struct {
	entries *lru.Cache[string, []float32]
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an in-memory cache holding at most capacity
// entries. Non-positive capacities fall back to the default.
func NewMemoryCache(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	entries, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &MemoryCache{entries: entries}, nil
}

// GetMany returns cached vectors keyed by text. Returned vectors are
// copies, so callers cannot corrupt cached entries.
func (c *MemoryCache) GetMany(_ context.Context, texts []string, model string) map[string][]float32 {
	found := make(map[string][]float32, len(texts))
	for _, text := range texts {
		if vec, ok := c.entries.Get(cacheKey(model, text)); ok {
			found[text] = cloneVector(vec)
		}
	}
	return found
}

// SetMany stores vectors for texts embedded under model.
func (c *MemoryCache) SetMany(_ context.Context, texts []string, model string, vectors [][]float32) {
	for i, text := range texts {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		c.entries.Add(cacheKey(model, text), cloneVector(vectors[i]))
	}
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
