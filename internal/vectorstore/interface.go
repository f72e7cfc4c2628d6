package vectorstore

import (
	"context"
)

// Store is the backend-agnostic contract for vector storage.
//
// Implementations are safe for concurrent use once Initialize has
// completed. Close must not race in-flight operations. The contract
// performs no internal retries beyond what a backend needs for its own
// transport; callers own timeouts and cancellation via ctx.
//
// A cancelled Upsert may have partially succeeded. Re-ingestion safety
// comes from the content-hash idempotence check in the ingest layer,
// not from storage-level transactions.
type Store interface {
	// Initialize establishes the underlying handle or connection.
	// Idempotent; calling it again is a no-op with no side effects.
	Initialize(ctx context.Context) error

	// Close releases the handle. Idempotent. Persisted data survives.
	Close() error

	// CreateCollection creates a named collection with a fixed
	// dimension and metric. Fails with ErrCollectionExists on a
	// duplicate name, ErrInvalidArgument on dimension < 1 and
	// ErrInvalidMetric on an unknown metric.
	CreateCollection(ctx context.Context, name string, dimension int, metric DistanceMetric) error

	// DeleteCollection removes a collection and all its records.
	// Fails with ErrCollectionNotFound when absent. Irreversible.
	DeleteCollection(ctx context.Context, name string) error

	// CollectionExists reports whether the collection exists. It never
	// errors: any lookup failure reads as false.
	CollectionExists(ctx context.Context, name string) bool

	// GetCollectionInfo returns a collection's dimension, metric and
	// record count. Fails with ErrCollectionNotFound when absent.
	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// Upsert writes records into a collection, replacing any record
	// with the same ID. Every vector must match the collection
	// dimension; one mismatch fails the whole batch before anything is
	// written. Returns the number of records written.
	Upsert(ctx context.Context, collection string, records []VectorRecord) (int, error)

	// Search returns up to opts.Limit results ordered by score
	// descending. Fails with ErrCollectionNotFound when the collection
	// is absent and ErrDimensionMismatch when the query vector length
	// is wrong.
	Search(ctx context.Context, collection string, queryVector []float32, opts SearchOptions) ([]SearchResult, error)

	// Delete removes records matched by the selector and returns the
	// number actually removed (pre-count minus post-count where the
	// backend has no native delete count).
	Delete(ctx context.Context, collection string, sel DeleteSelector) (int, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// HealthCheck verifies the backend is reachable and usable.
	HealthCheck(ctx context.Context) error
}
