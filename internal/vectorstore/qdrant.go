package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// QdrantConfig configures the networked Qdrant backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string

	// Port is the gRPC port (not the HTTP REST port).
	Port int

	// APIKey authenticates against managed endpoints. Optional for
	// self-hosted servers.
	APIKey string

	// UseTLS enables transport security.
	UseTLS bool

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubling per attempt.
	RetryBackoff time.Duration

	// MaxMessageSize caps gRPC send and receive sizes. Large batches
	// of high-dimensional vectors exceed the 4MB gRPC default.
	MaxMessageSize int

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerThreshold int

	// BreakerResetAfter is how long the breaker stays open before
	// allowing a probe.
	BreakerResetAfter time.Duration

	// HNSWM is the HNSW graph connectivity parameter.
	HNSWM int

	// HNSWEfConstruct is the HNSW construction beam width.
	HNSWEfConstruct int

	// IndexingThreshold is the point count at which Qdrant builds the
	// HNSW index. Kept low so small corpora get indexed.
	IndexingThreshold int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerResetAfter == 0 {
		c.BreakerResetAfter = 30 * time.Second
	}
	if c.HNSWM == 0 {
		c.HNSWM = 16
	}
	if c.HNSWEfConstruct == 0 {
		c.HNSWEfConstruct = 100
	}
	if c.IndexingThreshold == 0 {
		c.IndexingThreshold = 100
	}
}

// Validate checks the configuration for structural errors.
func (c *QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be in 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("%w: retry backoff must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	return nil
}

var metricToDistance = map[DistanceMetric]qdrant.Distance{
	MetricCosine:    qdrant.Distance_Cosine,
	MetricEuclidean: qdrant.Distance_Euclid,
	MetricDot:       qdrant.Distance_Dot,
}

var distanceToMetric = map[qdrant.Distance]DistanceMetric{
	qdrant.Distance_Cosine: MetricCosine,
	qdrant.Distance_Euclid: MetricEuclidean,
	qdrant.Distance_Dot:    MetricDot,
}

// circuitBreaker trips after consecutive backend failures so a dead
// server fails fast instead of eating the full retry budget per call.
type circuitBreaker struct {
	threshold  int
	resetAfter time.Duration

	mu       sync.Mutex
	failures int
	lastFail time.Time
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.failures < cb.threshold {
		return true
	}
	if time.Since(cb.lastFail) > cb.resetAfter {
		cb.failures = 0
		return true
	}
	return false
}

func (cb *circuitBreaker) success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

func (cb *circuitBreaker) failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFail = time.Now()
}

// IsTransientError reports whether a backend error is worth retrying.
// Cancellation is never retried; the caller gave up.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Dial failures surface as plain transport errors.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout")
}

// isCollectionMissing detects Qdrant's collection-not-found responses,
// which arrive either as a NotFound status or as a message like
// "Collection `docs` doesn't exist!".
func isCollectionMissing(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	if s.Code() == grpccodes.NotFound {
		return true
	}
	msg := strings.ToLower(s.Message())
	return strings.Contains(msg, "doesn't exist") || strings.Contains(msg, "not found")
}

// wrapBackendError maps gRPC status codes onto the store's error
// taxonomy, keeping the cause in the chain.
func wrapBackendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCollectionExists) ||
		errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case grpccodes.NotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case grpccodes.AlreadyExists:
			return fmt.Errorf("%w: %w", ErrCollectionExists, err)
		case grpccodes.InvalidArgument:
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// QdrantStore is the networked Store backed by a Qdrant server over
// gRPC. Scores come straight from the server and are never
// re-normalized: Qdrant already returns higher-is-better values for
// every supported metric.
type QdrantStore struct {
	config  QdrantConfig
	logger  *logging.Logger
	metrics *Metrics
	breaker *circuitBreaker

	mu     sync.RWMutex
	client *qdrant.Client

	// dims caches collection dimensions so per-batch validation does
	// not cost a round trip.
	dims sync.Map
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore validates the configuration and returns an
// uninitialized store. No connection is made until Initialize.
func NewQdrantStore(cfg QdrantConfig, logger *logging.Logger) (*QdrantStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &QdrantStore{
		config:  cfg,
		logger:  logger.Named("vectorstore.qdrant"),
		metrics: NewMetrics("qdrant", logger),
		breaker: &circuitBreaker{
			threshold:  cfg.BreakerThreshold,
			resetAfter: cfg.BreakerResetAfter,
		},
	}, nil
}

// Initialize dials the server and verifies it responds to a health
// check. It is idempotent.
func (s *QdrantStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   s.config.Host,
		Port:   s.config.Port,
		APIKey: s.config.APIKey,
		UseTLS: s.config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(s.config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(s.config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create client: %w", ErrBackendUnavailable, err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: health check: %w", ErrBackendUnavailable, err)
	}

	s.client = client
	s.logger.Info(ctx, "qdrant store initialized",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.Bool("tls", s.config.UseTLS))
	return nil
}

// Close tears down the gRPC connection. Idempotent.
func (s *QdrantStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("close qdrant client: %w", err)
	}
	return nil
}

func (s *QdrantStore) handle() (*qdrant.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, fmt.Errorf("%w: store not initialized", ErrBackendUnavailable)
	}
	return s.client, nil
}

// HealthCheck verifies the server responds.
func (s *QdrantStore) HealthCheck(ctx context.Context) error {
	client, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: health check: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// withRetry runs fn, retrying transient failures with doubling backoff
// behind the circuit breaker. Non-transient errors return immediately.
func (s *QdrantStore) withRetry(ctx context.Context, op string, fn func() error) error {
	if !s.breaker.allow() {
		return fmt.Errorf("%w: circuit breaker open, refusing %s", ErrBackendUnavailable, op)
	}

	backoff := s.config.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		lastErr = fn()
		if lastErr == nil {
			s.breaker.success()
			return nil
		}
		if !IsTransientError(lastErr) {
			return lastErr
		}
		s.logger.Warn(ctx, "transient backend failure",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	s.breaker.failure()
	return fmt.Errorf("%w: %s failed after %d attempts: %w",
		ErrBackendUnavailable, op, s.config.MaxRetries+1, lastErr)
}

// pointID maps a record ID to a deterministic Qdrant point ID. Valid
// UUIDs pass through; anything else hashes to a stable UUIDv5 so
// re-upserting the same record ID replaces the point rather than
// appending a new one.
func pointID(id string) *qdrant.PointId {
	if parsed, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(parsed.String())
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

func pointIDString(id *qdrant.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	default:
		return ""
	}
}

// CreateCollection creates a named collection with a fixed dimension
// and distance metric. An empty metric defaults to cosine.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int, metric DistanceMetric) (err error) {
	defer s.record(ctx, "create_collection", time.Now(), &err)

	client, err := s.handle()
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

	var exists bool
	err = s.withRetry(ctx, "collection_exists", func() error {
		var cerr error
		exists, cerr = client.CollectionExists(ctx, name)
		return cerr
	})
	if err != nil {
		return wrapBackendError(err)
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrCollectionExists, name)
	}

	err = s.withRetry(ctx, "create_collection", func() error {
		return client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: metricToDistance[metric],
			}),
			HnswConfig: &qdrant.HnswConfigDiff{
				M:           qdrant.PtrOf(uint64(s.config.HNSWM)),
				EfConstruct: qdrant.PtrOf(uint64(s.config.HNSWEfConstruct)),
			},
			OptimizersConfig: &qdrant.OptimizersConfigDiff{
				IndexingThreshold: qdrant.PtrOf(uint64(s.config.IndexingThreshold)),
			},
		})
	})
	if err != nil {
		return wrapBackendError(err)
	}

	s.dims.Store(name, dimension)
	s.logger.Info(ctx, "collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension),
		zap.String("metric", string(metric)))
	return nil
}

// DeleteCollection removes a collection and all its points.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) (err error) {
	defer s.record(ctx, "delete_collection", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return err
	}

	var exists bool
	err = s.withRetry(ctx, "collection_exists", func() error {
		var cerr error
		exists, cerr = client.CollectionExists(ctx, name)
		return cerr
	})
	if err != nil {
		return wrapBackendError(err)
	}
	if !exists {
		return fmt.Errorf("%w %q", ErrCollectionNotFound, name)
	}

	err = s.withRetry(ctx, "delete_collection", func() error {
		return client.DeleteCollection(ctx, name)
	})
	if err != nil {
		return wrapBackendError(err)
	}

	s.dims.Delete(name)
	s.logger.Info(ctx, "collection deleted", zap.String("collection", name))
	return nil
}

// CollectionExists reports whether the collection exists. Any failure,
// including an uninitialized store, reports false.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) bool {
	client, err := s.handle()
	if err != nil {
		return false
	}
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false
	}
	return exists
}

// GetCollectionInfo returns a collection's settings and point count.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, name string) (info *CollectionInfo, err error) {
	defer s.record(ctx, "get_collection_info", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return nil, err
	}

	var raw *qdrant.CollectionInfo
	err = s.withRetry(ctx, "get_collection_info", func() error {
		var cerr error
		raw, cerr = client.GetCollectionInfo(ctx, name)
		return cerr
	})
	if err != nil {
		if isCollectionMissing(err) {
			return nil, fmt.Errorf("%w %q", ErrCollectionNotFound, name)
		}
		return nil, wrapBackendError(err)
	}

	dimension := 0
	metric := MetricCosine
	if params := raw.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		dimension = int(params.GetSize())
		if m, ok := distanceToMetric[params.GetDistance()]; ok {
			metric = m
		}
	}

	return &CollectionInfo{
		Name:        name,
		Dimension:   dimension,
		Metric:      metric,
		VectorCount: int(raw.GetPointsCount()),
	}, nil
}

// ListCollections returns all collection names in sorted order.
func (s *QdrantStore) ListCollections(ctx context.Context) (names []string, err error) {
	defer s.record(ctx, "list_collections", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return nil, err
	}
	err = s.withRetry(ctx, "list_collections", func() error {
		var lerr error
		names, lerr = client.ListCollections(ctx)
		return lerr
	})
	if err != nil {
		return nil, wrapBackendError(err)
	}
	sort.Strings(names)
	return names, nil
}

// collectionDimension resolves a collection's dimension, caching the
// answer. A missing collection surfaces as ErrCollectionNotFound.
func (s *QdrantStore) collectionDimension(ctx context.Context, collection string) (int, error) {
	if v, ok := s.dims.Load(collection); ok {
		return v.(int), nil
	}
	info, err := s.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, err
	}
	if info.Dimension > 0 {
		s.dims.Store(collection, info.Dimension)
	}
	return info.Dimension, nil
}

// Upsert writes records into a collection, replacing any existing
// point with the same record ID. The whole batch is validated before
// anything is sent: one bad record fails the call and nothing is
// written.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, records []VectorRecord) (count int, err error) {
	defer s.record(ctx, "upsert", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		// Still surface missing collections.
		if _, err = s.collectionDimension(ctx, collection); err != nil {
			return 0, err
		}
		return 0, nil
	}

	dim, err := s.collectionDimension(ctx, collection)
	if err != nil {
		return 0, err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("%w: record %d has an empty id", ErrInvalidArgument, i)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("%w: record %q has no vector", ErrInvalidArgument, r.ID)
		}
		if dim > 0 && len(r.Vector) != dim {
			return 0, fmt.Errorf("%w: record %q has dimension %d, collection expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}

		payload, perr := toQdrantPayload(r.Payload)
		if perr != nil {
			return 0, perr
		}
		// The original record ID rides in the payload; point IDs are
		// UUIDs and may not match what the caller passed in.
		payload["id"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: r.ID}}

		points = append(points, &qdrant.PointStruct{
			Id:      pointID(r.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: payload,
		})
	}

	err = s.withRetry(ctx, "upsert", func() error {
		_, uerr := client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return uerr
	})
	if err != nil {
		if isCollectionMissing(err) {
			return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
		}
		return 0, wrapBackendError(err)
	}

	s.logger.Debug(ctx, "records upserted",
		zap.String("collection", collection),
		zap.Int("count", len(points)))
	return len(points), nil
}

// Search returns up to opts.Limit records ordered by descending score.
// Scores are the server's native similarity values.
func (s *QdrantStore) Search(ctx context.Context, collection string, queryVector []float32, opts SearchOptions) (results []SearchResult, err error) {
	defer s.record(ctx, "search", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return nil, err
	}
	if err = opts.Validate(); err != nil {
		return nil, err
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: query vector cannot be empty", ErrInvalidArgument)
	}

	dim, err := s.collectionDimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dim > 0 && len(queryVector) != dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection expects %d",
			ErrDimensionMismatch, len(queryVector), dim)
	}

	filter, err := translateFilters(opts.Filters)
	if err != nil {
		return nil, err
	}

	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(opts.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
		ScoreThreshold: opts.ScoreThreshold,
	}
	if opts.WithVectors {
		query.WithVectors = qdrant.NewWithVectors(true)
	}
	if opts.Exact {
		query.Params = &qdrant.SearchParams{Exact: qdrant.PtrOf(true)}
	}

	var points []*qdrant.ScoredPoint
	err = s.withRetry(ctx, "search", func() error {
		var qerr error
		points, qerr = client.Query(ctx, query)
		return qerr
	})
	if err != nil {
		if isCollectionMissing(err) {
			return nil, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
		}
		return nil, wrapBackendError(err)
	}

	results = make([]SearchResult, 0, len(points))
	for _, p := range points {
		payload := fromQdrantPayload(p.GetPayload())
		id := pointIDString(p.GetId())
		if raw, ok := payload["id"].(string); ok && raw != "" {
			id = raw
			delete(payload, "id")
		}
		sr := SearchResult{ID: id, Score: p.GetScore(), Payload: payload}
		if opts.WithVectors {
			sr.Vector = p.GetVectors().GetVector().GetData()
		}
		results = append(results, sr)
	}
	return results, nil
}

// Delete removes points matching the selector and returns how many
// were removed. IDs and filters combine with AND.
func (s *QdrantStore) Delete(ctx context.Context, collection string, sel DeleteSelector) (deleted int, err error) {
	defer s.record(ctx, "delete", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return 0, err
	}
	if err = sel.Validate(); err != nil {
		return 0, err
	}

	filter, err := translateFilters(sel.Filters)
	if err != nil {
		return 0, err
	}
	if len(sel.IDs) > 0 {
		ids := make([]*qdrant.PointId, 0, len(sel.IDs))
		for _, id := range sel.IDs {
			ids = append(ids, pointID(id))
		}
		if filter == nil {
			filter = &qdrant.Filter{}
		}
		filter.Must = append(filter.Must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_HasId{
				HasId: &qdrant.HasIdCondition{HasId: ids},
			},
		})
	}

	pre, err := s.count(ctx, client, collection)
	if err != nil {
		return 0, err
	}

	err = s.withRetry(ctx, "delete", func() error {
		_, derr := client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
			},
			Wait: qdrant.PtrOf(true),
		})
		return derr
	})
	if err != nil {
		if isCollectionMissing(err) {
			return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
		}
		return 0, wrapBackendError(err)
	}

	post, err := s.count(ctx, client, collection)
	if err != nil {
		return 0, err
	}
	deleted = pre - post

	s.logger.Debug(ctx, "records deleted",
		zap.String("collection", collection),
		zap.Int("count", deleted))
	return deleted, nil
}

// Count returns the exact number of points in a collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (count int, err error) {
	defer s.record(ctx, "count", time.Now(), &err)

	client, err := s.handle()
	if err != nil {
		return 0, err
	}
	return s.count(ctx, client, collection)
}

func (s *QdrantStore) count(ctx context.Context, client *qdrant.Client, collection string) (int, error) {
	var n uint64
	err := s.withRetry(ctx, "count", func() error {
		var cerr error
		n, cerr = client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		return cerr
	})
	if err != nil {
		if isCollectionMissing(err) {
			return 0, fmt.Errorf("%w %q", ErrCollectionNotFound, collection)
		}
		return 0, wrapBackendError(err)
	}
	return int(n), nil
}

func (s *QdrantStore) record(ctx context.Context, op string, start time.Time, err *error) {
	s.metrics.Record(ctx, op, start, *err)
}

// translateFilters converts the portable filter DSL into a Qdrant
// filter. Equality and $in become must conditions, $ne becomes a
// must_not condition, and range operators on one key merge into a
// single range condition.
func translateFilters(filters map[string]any) (*qdrant.Filter, error) {
	clauses, err := parseFilters(filters)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	f := &qdrant.Filter{}
	ranges := make(map[string]*qdrant.Range)
	var rangeOrder []string

	for _, c := range clauses {
		switch c.op {
		case "":
			cond, err := matchCondition(c.key, c.value)
			if err != nil {
				return nil, err
			}
			f.Must = append(f.Must, cond)
		case opIn:
			cond, err := matchAnyCondition(c.key, c.values)
			if err != nil {
				return nil, err
			}
			f.Must = append(f.Must, cond)
		case opNe:
			cond, err := matchCondition(c.key, c.value)
			if err != nil {
				return nil, err
			}
			f.MustNot = append(f.MustNot, cond)
		case opGt, opGte, opLt, opLte:
			n, ok := toFloat64(c.value)
			if !ok {
				return nil, fmt.Errorf("%w: %s operand for key %q must be numeric, got %T",
					ErrInvalidFilter, c.op, c.key, c.value)
			}
			r := ranges[c.key]
			if r == nil {
				r = &qdrant.Range{}
				ranges[c.key] = r
				rangeOrder = append(rangeOrder, c.key)
			}
			switch c.op {
			case opGt:
				r.Gt = &n
			case opGte:
				r.Gte = &n
			case opLt:
				r.Lt = &n
			case opLte:
				r.Lte = &n
			}
		}
	}

	for _, key := range rangeOrder {
		f.Must = append(f.Must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{Key: key, Range: ranges[key]},
			},
		})
	}
	return f, nil
}

// matchCondition builds an exact-match field condition. Qdrant matches
// keywords, integers, and booleans; fractional numbers need range
// operators instead.
func matchCondition(key string, value any) (*qdrant.Condition, error) {
	m := &qdrant.Match{}
	switch t := value.(type) {
	case string:
		m.MatchValue = &qdrant.Match_Keyword{Keyword: t}
	case bool:
		m.MatchValue = &qdrant.Match_Boolean{Boolean: t}
	case int:
		m.MatchValue = &qdrant.Match_Integer{Integer: int64(t)}
	case int32:
		m.MatchValue = &qdrant.Match_Integer{Integer: int64(t)}
	case int64:
		m.MatchValue = &qdrant.Match_Integer{Integer: t}
	case float64:
		if t != math.Trunc(t) {
			return nil, fmt.Errorf("%w: equality on fractional number for key %q; use range operators", ErrInvalidFilter, key)
		}
		m.MatchValue = &qdrant.Match_Integer{Integer: int64(t)}
	default:
		return nil, fmt.Errorf("%w: unsupported equality operand %T for key %q", ErrInvalidFilter, value, key)
	}
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: m},
		},
	}, nil
}

// matchAnyCondition builds an $in membership condition over a string
// or integer list.
func matchAnyCondition(key string, values []any) (*qdrant.Condition, error) {
	m := &qdrant.Match{}
	switch values[0].(type) {
	case string:
		keywords := make([]string, 0, len(values))
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: $in list for key %q mixes types", ErrInvalidFilter, key)
			}
			keywords = append(keywords, s)
		}
		m.MatchValue = &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: keywords}}
	case int, int32, int64, float64:
		ints := make([]int64, 0, len(values))
		for _, v := range values {
			n, ok := toFloat64(v)
			if !ok || n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: $in list for key %q must hold integers or strings", ErrInvalidFilter, key)
			}
			ints = append(ints, int64(n))
		}
		m.MatchValue = &qdrant.Match_Integers{Integers: &qdrant.RepeatedIntegers{Integers: ints}}
	default:
		return nil, fmt.Errorf("%w: $in supports string or integer lists, got %T for key %q", ErrInvalidFilter, values[0], key)
	}
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: m},
		},
	}, nil
}

// toQdrantPayload converts a payload into Qdrant's value map.
func toQdrantPayload(payload map[string]any) (map[string]*qdrant.Value, error) {
	out := make(map[string]*qdrant.Value, len(payload)+1)
	for k, v := range payload {
		val, err := toQdrantValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: payload value %q: %v", ErrInvalidArgument, k, err)
		}
		out[k] = val
	}
	return out, nil
}

// toQdrantValue converts one payload value, recursing into lists and
// nested maps.
func toQdrantValue(v any) (*qdrant.Value, error) {
	switch t := v.(type) {
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}, nil
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: t}}, nil
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: t}}, nil
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(t)}}, nil
	case int32:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(t)}}, nil
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: t}}, nil
	case float32:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: float64(t)}}, nil
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: t}}, nil
	case []string:
		values := make([]*qdrant.Value, 0, len(t))
		for _, item := range t {
			values = append(values, &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: item}})
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}, nil
	case []any:
		values := make([]*qdrant.Value, 0, len(t))
		for _, item := range t {
			val, err := toQdrantValue(item)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}, nil
	case map[string]any:
		fields := make(map[string]*qdrant.Value, len(t))
		for k, item := range t {
			val, err := toQdrantValue(item)
			if err != nil {
				return nil, err
			}
			fields[k] = val
		}
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: fields}}}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// fromQdrantPayload converts Qdrant's value map back into a payload.
// Integers come back as int64 and doubles as float64.
func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = fromQdrantValue(v)
	}
	return out
}

func fromQdrantValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, fromQdrantValue(item))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, item := range kind.StructValue.GetFields() {
			fields[k] = fromQdrantValue(item)
		}
		return fields
	default:
		return nil
	}
}
