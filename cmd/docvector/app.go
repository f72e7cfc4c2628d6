package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/embeddings"
	"github.com/fyrsmithlabs/docvector/internal/logging"
	"github.com/fyrsmithlabs/docvector/internal/telemetry"
	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

// app holds the dependencies shared by commands: configuration, logger,
// telemetry, the vector store, and (for commands that embed) the
// embedding provider.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	store    vectorstore.Store
	provider embeddings.Provider
}

// newStoreApp wires config -> telemetry -> logger -> vector store.
// Collection management never embeds anything, so it skips the provider
// and the model download that can come with it.
func newStoreApp(ctx context.Context) (*app, error) {
	a, err := newBaseApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newApp wires the full chain including the embedding provider.
func newApp(ctx context.Context) (*app, error) {
	a, err := newBaseApp(ctx)
	if err != nil {
		return nil, err
	}

	// fastembed needs the ONNX runtime on disk before construction.
	if a.cfg.Embeddings.Provider == "" || a.cfg.Embeddings.Provider == "fastembed" {
		if err := ensureONNXRuntime(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	provider, err := embeddings.NewProvider(a.cfg.Embeddings, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	a.provider = provider

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newBaseApp loads configuration and initializes telemetry and logging.
func newBaseApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configFile)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	lcfg, err := logging.FromLogging(cfg.Logging)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	logger, err := logging.NewLogger(lcfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

func (a *app) initStore(ctx context.Context) error {
	store, err := vectorstore.NewStore(a.cfg.VectorStore, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	a.store = store
	return nil
}

// Close releases dependencies in reverse initialization order.
func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.provider != nil {
		_ = a.provider.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.tel != nil {
		_ = a.tel.Shutdown(context.Background())
	}
}

// ensureCollection creates the collection when it does not exist yet,
// sized for the configured embedding model.
func (a *app) ensureCollection(ctx context.Context, name string) error {
	if a.store.CollectionExists(ctx, name) {
		return nil
	}
	dim := embeddings.ModelDimension(a.cfg.Embeddings.Model)
	if a.provider != nil {
		dim = a.provider.Dimension()
	}
	if err := a.store.CreateCollection(ctx, name, dim, vectorstore.MetricCosine); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a
// long-running ingest can stop cleanly mid-batch.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
