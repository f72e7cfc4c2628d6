package embeddings

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// BadgerCache is a persistent embedding cache backed by BadgerDB.
// Entries survive restarts, so re-ingesting a corpus after a process
// restart only embeds texts that actually changed.
type BadgerCache struct {
	db     *badger.DB
	logger *logging.Logger
}

var _ Cache = (*BadgerCache)(nil)

// NewBadgerCache opens (or creates) a badger-backed cache at path.
func NewBadgerCache(path string, logger *logging.Logger) (*BadgerCache, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: cache path required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("embeddings.cache")

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = logging.NewBadgerAdapter(logger)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger cache: %w", err)
	}

	return &BadgerCache{db: db, logger: logger}, nil
}

// GetMany returns cached vectors keyed by text. Read failures and
// undecodable entries degrade to misses.
func (c *BadgerCache) GetMany(ctx context.Context, texts []string, model string) map[string][]float32 {
	found := make(map[string][]float32, len(texts))
	err := c.db.View(func(txn *badger.Txn) error {
		for _, text := range texts {
			item, err := txn.Get([]byte(cacheKey(model, text)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				vec, decErr := decodeVector(val)
				if decErr != nil {
					c.logger.Warn(ctx, "skipping undecodable cache entry", zap.Error(decErr))
					return nil
				}
				found[text] = vec
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn(ctx, "embedding cache read failed", zap.Error(err))
	}
	return found
}

// SetMany stores vectors for texts embedded under model. Write failures
// are logged and dropped; the cache never fails an embedding call.
func (c *BadgerCache) SetMany(ctx context.Context, texts []string, model string, vectors [][]float32) {
	err := c.db.Update(func(txn *badger.Txn) error {
		for i, text := range texts {
			if i >= len(vectors) || vectors[i] == nil {
				continue
			}
			if err := txn.Set([]byte(cacheKey(model, text)), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn(ctx, "embedding cache write failed", zap.Error(err))
	}
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// encodeVector packs a vector as little-endian float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("cache value length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

var _ badger.Logger = (*logging.BadgerAdapter)(nil)
