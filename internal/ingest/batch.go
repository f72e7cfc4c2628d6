package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// BatchStats summarizes one batch ingestion run.
type BatchStats struct {
	// Fetched is the number of documents handed in.
	Fetched int

	// Processed is the number of documents fully ingested in this run.
	Processed int

	// Skipped is the number of documents whose (source, hash) pair was
	// already completed.
	Skipped int

	// Failed is the number of documents whose ingestion errored.
	Failed int

	// Chunks is the total number of chunk records written.
	Chunks int

	// Errors holds one entry per failed document.
	Errors []error
}

// BatchIngester runs documents through a Pipeline on a worker pool.
// One document's failure never aborts its siblings; failures are
// counted and collected in the returned stats.
type BatchIngester struct {
	pipeline *Pipeline
	pool     *ants.Pool
	logger   *logging.Logger
}

// NewBatchIngester builds a batch ingester with a pool of workers.
// Non-positive workers defaults to half the CPU count, minimum 1.
func NewBatchIngester(pipeline *Pipeline, workers int, logger *logging.Logger) (*BatchIngester, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("%w: pipeline required", ErrInvalidConfig)
	}
	if workers < 1 {
		workers = runtime.NumCPU() / 2
		if workers < 1 {
			workers = 1
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	return &BatchIngester{
		pipeline: pipeline,
		pool:     pool,
		logger:   logger.Named("ingest.batch"),
	}, nil
}

// IngestAll processes every document and blocks until all workers
// finish. Documents submitted after ctx is cancelled fail with the
// context error but earlier submissions run to completion.
func (b *BatchIngester) IngestAll(ctx context.Context, docs []Fetched) (*BatchStats, error) {
	stats := &BatchStats{Fetched: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(res *IngestResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			stats.Failed++
			stats.Errors = append(stats.Errors, err)
		case res.Skipped:
			stats.Skipped++
		default:
			stats.Processed++
			stats.Chunks += res.Document.ChunkCount
		}
	}

	for _, doc := range docs {
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				record(nil, fmt.Errorf("ingesting %s: %w", doc.URL, err))
				return
			}
			res, err := b.pipeline.IngestDocument(ctx, doc)
			record(res, err)
		})
		if submitErr != nil {
			wg.Done()
			record(nil, fmt.Errorf("submitting %s: %w", doc.URL, submitErr))
		}
	}
	wg.Wait()

	b.logger.Info(ctx, "batch ingestion finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("chunks", stats.Chunks),
	)
	return stats, nil
}

// Release shuts down the worker pool. The ingester cannot be used
// afterwards.
func (b *BatchIngester) Release() {
	b.pool.Release()
}
