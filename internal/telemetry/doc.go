// Package telemetry provides OpenTelemetry instrumentation for docvector.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using the
// OpenTelemetry Go SDK. It exports telemetry data over OTLP (gRPC or
// HTTP/protobuf) to a collector.
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("docvector.vectorstore")
//	ctx, span := tracer.Start(ctx, "Store.Search")
//	defer span.End()
//
//	meter := tel.Meter("docvector.vectorstore")
//	counter, _ := meter.Int64Counter("store.searches")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	observability:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  service_name: "docvector"
//	  sample_rate: 1.0
//	  metric_interval: "60s"
//
// # Error Handling
//
// Telemetry failures do not crash the application. If telemetry cannot be
// initialized, the instance degrades gracefully and returns no-op providers.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
