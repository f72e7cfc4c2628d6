package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

const instrumentationName = "docvector.embeddings"

// Metrics records embedding generation latency, batch sizes, failures,
// and cache effectiveness. A nil *Metrics is safe to use and records
// nothing.
type Metrics struct {
	duration    metric.Float64Histogram
	batchSize   metric.Int64Histogram
	errors      metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// NewMetrics creates instruments on the global meter provider. An
// instrument that fails to build is logged and left disabled; the
// provider keeps working without it.
func NewMetrics(logger *logging.Logger) *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.duration, err = meter.Float64Histogram(
		"embedding.generation.duration",
		metric.WithDescription("Embedding generation latency per provider call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		logger.Warn(context.Background(), "create embedding duration histogram", zap.Error(err))
		m.duration = nil
	}

	m.batchSize, err = meter.Int64Histogram(
		"embedding.batch_size",
		metric.WithDescription("Number of texts per embedding provider call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		logger.Warn(context.Background(), "create embedding batch size histogram", zap.Error(err))
		m.batchSize = nil
	}

	m.errors, err = meter.Int64Counter(
		"embedding.errors",
		metric.WithDescription("Embedding generation failures"),
	)
	if err != nil {
		logger.Warn(context.Background(), "create embedding error counter", zap.Error(err))
		m.errors = nil
	}

	m.cacheHits, err = meter.Int64Counter(
		"embedding.cache.hits",
		metric.WithDescription("Embedding cache hits"),
	)
	if err != nil {
		logger.Warn(context.Background(), "create embedding cache hit counter", zap.Error(err))
		m.cacheHits = nil
	}

	m.cacheMisses, err = meter.Int64Counter(
		"embedding.cache.misses",
		metric.WithDescription("Embedding cache misses"),
	)
	if err != nil {
		logger.Warn(context.Background(), "create embedding cache miss counter", zap.Error(err))
		m.cacheMisses = nil
	}

	return m
}

// RecordGeneration captures one provider call's latency, batch size, and
// outcome.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, start time.Time, batch int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if batch > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batch), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordCache captures hit and miss counts for one cache lookup.
func (m *Metrics) RecordCache(ctx context.Context, model string, hits, misses int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	if hits > 0 && m.cacheHits != nil {
		m.cacheHits.Add(ctx, int64(hits), attrs)
	}
	if misses > 0 && m.cacheMisses != nil {
		m.cacheMisses.Add(ctx, int64(misses), attrs)
	}
}

// measuredProvider instruments provider calls with generation metrics.
// Dimension, Model, and Close pass through.
type measuredProvider struct {
	Provider
	metrics *Metrics
}

func newMeasuredProvider(p Provider, metrics *Metrics) *measuredProvider {
	return &measuredProvider{Provider: p, metrics: metrics}
}

func (p *measuredProvider) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordGeneration(ctx, p.Model(), "embed_documents", start, len(texts), err)
	}()
	return p.Provider.EmbedDocuments(ctx, texts)
}

func (p *measuredProvider) EmbedQuery(ctx context.Context, text string) (vector []float32, err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordGeneration(ctx, p.Model(), "embed_query", start, 1, err)
	}()
	return p.Provider.EmbedQuery(ctx, text)
}
