package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory database files persist to. A leading ~ is
	// expanded to the user's home directory.
	Path string

	// Compress gzip-compresses persisted files.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/docvector/vectorstore"
	}
}

// Validate checks the configuration for structural errors.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: persistence path required", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore is the embedded Store backed by chromem-go. Vectors and
// payloads persist as files under the configured path; collection
// dimension and metric live in a sidecar registry because chromem does
// not expose collection metadata for reading.
//
// chromem scores results by cosine similarity regardless of the
// declared metric, so Search converts each similarity to the declared
// metric's distance and then to the uniform score. The conversions are
// monotone, which preserves chromem's descending result order.
type ChromemStore struct {
	config  ChromemConfig
	logger  *logging.Logger
	metrics *Metrics

	mu   sync.RWMutex
	db   *chromem.DB
	meta *metadataFile
	path string
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore validates the configuration and returns an
// uninitialized store. Initialize opens the database.
func NewChromemStore(cfg ChromemConfig, logger *logging.Logger) (*ChromemStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChromemStore{
		config:  cfg,
		logger:  logger.Named("vectorstore.chromem"),
		metrics: NewMetrics("chromem", logger),
	}, nil
}

// noEmbedding rejects documents that arrive without vectors. Embedding
// happens upstream; the database must never call out to a model.
func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("vectorstore: embedding must be provided by the caller")
}

// Initialize opens the persistent database. It is idempotent.
func (s *ChromemStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	path, err := config.ExpandPath(s.config.Path)
	if err != nil {
		return fmt.Errorf("%w: expand persistence path: %w", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("%w: create persistence directory: %w", ErrBackendUnavailable, err)
	}

	db, err := chromem.NewPersistentDB(path, s.config.Compress)
	if err != nil {
		return fmt.Errorf("%w: open database: %w", ErrBackendUnavailable, err)
	}
	meta, err := openMetadataFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	s.db = db
	s.meta = meta
	s.path = path
	s.logger.Info(ctx, "embedded vector store initialized",
		zap.String("path", path),
		zap.Bool("compress", s.config.Compress),
		zap.Int("collections", len(db.ListCollections())))
	return nil
}

// Close releases the database handle. chromem flushes on every write,
// so there is nothing to sync here. Idempotent.
func (s *ChromemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = nil
	s.meta = nil
	return nil
}

type chromemHandle struct {
	db   *chromem.DB
	meta *metadataFile
	path string
}

func (s *ChromemStore) handle() (chromemHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return chromemHandle{}, fmt.Errorf("%w: store not initialized", ErrBackendUnavailable)
	}
	return chromemHandle{db: s.db, meta: s.meta, path: s.path}, nil
}

// HealthCheck verifies the store is initialized and its persistence
// directory is still accessible.
func (s *ChromemStore) HealthCheck(ctx context.Context) error {
	h, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := os.Stat(h.path); err != nil {
		return fmt.Errorf("%w: persistence directory: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// CreateCollection creates a named collection with a fixed dimension
// and distance metric. An empty metric defaults to cosine.
func (s *ChromemStore) CreateCollection(ctx context.Context, name string, dimension int, metric DistanceMetric) (err error) {
	defer s.record(ctx, "create_collection", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return err
	}
	if err = ValidateCollectionName(name); err != nil {
		return err
	}
	if dimension < 1 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dimension)
	}
	metric, err = ParseDistanceMetric(string(metric))
	if err != nil {
		return err
	}
	if h.db.GetCollection(name, noEmbedding) != nil {
		return fmt.Errorf("%w: %q", ErrCollectionExists, name)
	}

	// The metadata map makes on-disk collection files self-describing;
	// the sidecar is what the store reads back.
	_, err = h.db.CreateCollection(name, map[string]string{
		"space":     string(metric),
		"dimension": strconv.Itoa(dimension),
	}, noEmbedding)
	if err != nil {
		return fmt.Errorf("%w: create collection: %w", ErrBackendUnavailable, err)
	}
	if err = h.meta.put(name, collectionMeta{Dimension: dimension, Metric: metric}); err != nil {
		// Roll back so the database and sidecar stay consistent.
		_ = h.db.DeleteCollection(name)
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	s.logger.Info(ctx, "collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension),
		zap.String("metric", string(metric)))
	return nil
}

// DeleteCollection removes a collection and all its records.
func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) (err error) {
	defer s.record(ctx, "delete_collection", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return err
	}
	if h.db.GetCollection(name, noEmbedding) == nil {
		return fmt.Errorf("%w %q", ErrCollectionNotFound, name)
	}
	if err = h.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: delete collection: %w", ErrBackendUnavailable, err)
	}
	if err := h.meta.remove(name); err != nil {
		s.logger.Warn(ctx, "collection deleted but sidecar update failed",
			zap.String("collection", name), zap.Error(err))
	}

	s.logger.Info(ctx, "collection deleted", zap.String("collection", name))
	return nil
}

// CollectionExists reports whether the collection exists. Any failure,
// including an uninitialized store, reports false.
func (s *ChromemStore) CollectionExists(_ context.Context, name string) bool {
	h, err := s.handle()
	if err != nil {
		return false
	}
	return h.db.GetCollection(name, noEmbedding) != nil
}

// GetCollectionInfo returns a collection's settings and vector count.
func (s *ChromemStore) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}
	c := h.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w %q", ErrCollectionNotFound, name)
	}

	meta, ok := h.meta.get(name)
	if !ok {
		// Collection predates the sidecar or the file was lost; report
		// defaults rather than failing reads.
		s.logger.Warn(ctx, "collection missing sidecar metadata",
			zap.String("collection", name))
		meta = collectionMeta{Metric: MetricCosine}
	}

	return &CollectionInfo{
		Name:        name,
		Dimension:   meta.Dimension,
		Metric:      meta.Metric,
		VectorCount: c.Count(),
	}, nil
}

// ListCollections returns all collection names in sorted order.
func (s *ChromemStore) ListCollections(_ context.Context) ([]string, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}
	collections := h.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Upsert writes records into a collection, replacing any existing
// record with the same ID. The whole batch is validated before any
// write: one bad record fails the call and nothing is stored.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, records []VectorRecord) (count int, err error) {
	defer s.record(ctx, "upsert", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return 0, err
	}
	c := h.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
	}
	if len(records) == 0 {
		return 0, nil
	}

	expected := 0
	if meta, ok := h.meta.get(collection); ok {
		expected = meta.Dimension
	}

	docs := make([]chromem.Document, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("%w: record %d has an empty id", ErrInvalidArgument, i)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("%w: record %q has no vector", ErrInvalidArgument, r.ID)
		}
		if expected == 0 {
			expected = len(r.Vector)
		}
		if len(r.Vector) != expected {
			return 0, fmt.Errorf("%w: record %q has dimension %d, collection expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), expected)
		}

		metadata, err := encodePayload(r.Payload)
		if err != nil {
			return 0, err
		}
		content, _ := r.Payload["content"].(string)
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   content,
			Metadata:  metadata,
			Embedding: r.Vector,
		})
	}

	// Concurrency 1 keeps writes deterministic; batches are small
	// enough that fan-out buys nothing.
	if err = c.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("%w: add documents: %w", ErrBackendUnavailable, err)
	}

	s.logger.Debug(ctx, "records upserted",
		zap.String("collection", collection),
		zap.Int("count", len(docs)))
	return len(docs), nil
}

// Search returns up to opts.Limit records ordered by descending score.
// The embedded backend supports equality filters only.
func (s *ChromemStore) Search(ctx context.Context, collection string, queryVector []float32, opts SearchOptions) (results []SearchResult, err error) {
	defer s.record(ctx, "search", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return nil, err
	}
	c := h.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
	}
	if err = opts.Validate(); err != nil {
		return nil, err
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: query vector cannot be empty", ErrInvalidArgument)
	}

	meta, hasMeta := h.meta.get(collection)
	if hasMeta && meta.Dimension > 0 && len(queryVector) != meta.Dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection expects %d",
			ErrDimensionMismatch, len(queryVector), meta.Dimension)
	}

	clauses, err := parseEqualityFilters(opts.Filters)
	if err != nil {
		return nil, err
	}
	where, err := encodeWhere(clauses)
	if err != nil {
		return nil, err
	}

	total := c.Count()
	if total == 0 {
		return []SearchResult{}, nil
	}
	k := opts.Limit
	if k > total {
		k = total
	}

	hits, err := c.QueryEmbedding(ctx, queryVector, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrBackendUnavailable, err)
	}

	metric := MetricCosine
	if hasMeta {
		metric = meta.Metric
	}

	results = make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		score := scoreFromDistance(metric, distanceFromSimilarity(metric, hit.Similarity))
		if opts.ScoreThreshold != nil && score < *opts.ScoreThreshold {
			continue
		}
		sr := SearchResult{
			ID:      hit.ID,
			Score:   score,
			Payload: decodePayload(hit.Metadata, hit.Content),
		}
		if opts.WithVectors {
			sr.Vector = hit.Embedding
		}
		results = append(results, sr)
	}
	return results, nil
}

// Delete removes records matching the selector and returns how many
// were removed. IDs and filters combine with AND.
func (s *ChromemStore) Delete(ctx context.Context, collection string, sel DeleteSelector) (deleted int, err error) {
	defer s.record(ctx, "delete", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return 0, err
	}
	c := h.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
	}
	if err = sel.Validate(); err != nil {
		return 0, err
	}

	clauses, err := parseEqualityFilters(sel.Filters)
	if err != nil {
		return 0, err
	}
	where, err := encodeWhere(clauses)
	if err != nil {
		return 0, err
	}

	ids := sel.IDs
	if len(ids) > 0 && len(where) > 0 {
		// chromem applies either the where map or the ID list, not
		// both, so intersect here before deleting.
		ids, err = s.matchIDs(ctx, c, sel.IDs, where)
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			return 0, nil
		}
		where = nil
	}

	pre := c.Count()
	if err = c.Delete(ctx, where, nil, ids...); err != nil {
		return 0, fmt.Errorf("%w: delete: %w", ErrBackendUnavailable, err)
	}
	deleted = pre - c.Count()

	s.logger.Debug(ctx, "records deleted",
		zap.String("collection", collection),
		zap.Int("count", deleted))
	return deleted, nil
}

// matchIDs filters candidate IDs down to those whose metadata matches
// every encoded equality condition.
func (s *ChromemStore) matchIDs(ctx context.Context, c *chromem.Collection, candidates []string, where map[string]string) ([]string, error) {
	matched := make([]string, 0, len(candidates))
	for _, id := range candidates {
		doc, err := c.GetByID(ctx, id)
		if err != nil {
			continue // unknown IDs simply do not match
		}
		ok := true
		for k, want := range where {
			if doc.Metadata[k] != want {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// Count returns the number of records in a collection.
func (s *ChromemStore) Count(ctx context.Context, collection string) (count int, err error) {
	defer s.record(ctx, "count", time.Now(), &err)

	h, err := s.handle()
	if err != nil {
		return 0, err
	}
	c := h.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
	}
	return c.Count(), nil
}

func (s *ChromemStore) record(ctx context.Context, op string, start time.Time, err *error) {
	s.metrics.Record(ctx, op, start, *err)
}

// encodePayload JSON-encodes each payload value into chromem's string
// metadata. Filters are encoded the same way, so native equality
// matching compares like with like. Numbers decode back as float64.
func encodePayload(payload map[string]any) (map[string]string, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: payload value %q is not JSON-encodable: %v", ErrInvalidArgument, k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

// encodeWhere converts equality clauses into chromem's where map using
// the payload encoding.
func encodeWhere(clauses []filterClause) (map[string]string, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	where := make(map[string]string, len(clauses))
	for _, c := range clauses {
		b, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("%w: filter value for %q is not JSON-encodable: %v", ErrInvalidFilter, c.key, err)
		}
		where[c.key] = string(b)
	}
	return where, nil
}

// decodePayload reverses encodePayload. Values that do not parse as
// JSON pass through as raw strings. Document content is surfaced under
// the "content" key when the payload itself did not carry one.
func decodePayload(metadata map[string]string, content string) map[string]any {
	if len(metadata) == 0 && content == "" {
		return nil
	}
	out := make(map[string]any, len(metadata)+1)
	for k, raw := range metadata {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			out[k] = raw
			continue
		}
		out[k] = v
	}
	if content != "" {
		if _, ok := out["content"]; !ok {
			out["content"] = content
		}
	}
	return out
}
