package vectorstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

const instrumentationName = "docvector.vectorstore"

// Metrics records operation latency and failure counts for one store
// backend. A nil *Metrics is safe to use and records nothing.
type Metrics struct {
	backend  string
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates instruments on the global meter provider. An
// instrument that fails to build is logged and left disabled; the
// store keeps working without it.
func NewMetrics(backend string, logger *logging.Logger) *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{backend: backend}

	var err error
	m.duration, err = meter.Float64Histogram(
		"vectorstore.operation.duration",
		metric.WithDescription("Vector store operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		logger.Warn(context.Background(), "create vectorstore duration histogram", zap.Error(err))
		m.duration = nil
	}

	m.errors, err = meter.Int64Counter(
		"vectorstore.operation.errors",
		metric.WithDescription("Vector store operation failures"),
	)
	if err != nil {
		logger.Warn(context.Background(), "create vectorstore error counter", zap.Error(err))
		m.errors = nil
	}

	return m
}

// Record captures one operation's latency and outcome.
func (m *Metrics) Record(ctx context.Context, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", m.backend),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}
