package vectorstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for vector store operations. Callers classify with
// errors.Is; the derived sentinels wrap their category so a single
// errors.Is(err, ErrInvalidArgument) check covers every validation
// failure.
var (
	// ErrNotFound is the category for absent collections or records.
	ErrNotFound = errors.New("not found")

	// ErrCollectionNotFound is returned when a collection does not exist.
	// Never silently mapped to an empty result set.
	ErrCollectionNotFound = fmt.Errorf("%w: collection", ErrNotFound)

	// ErrCollectionExists is returned when creating a collection whose
	// name is already taken.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrInvalidArgument is the category for caller mistakes: bad
	// dimensions, malformed filters, missing delete selectors. Never
	// retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is returned when a vector's length does not
	// match the collection dimension.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrInvalidArgument)

	// ErrInvalidMetric is returned for an unknown distance metric.
	ErrInvalidMetric = fmt.Errorf("%w: invalid distance metric", ErrInvalidArgument)

	// ErrInvalidCollectionName is returned when a collection name fails
	// validation.
	ErrInvalidCollectionName = fmt.Errorf("%w: invalid collection name", ErrInvalidArgument)

	// ErrInvalidFilter is returned for malformed or unsupported filter
	// expressions.
	ErrInvalidFilter = fmt.Errorf("%w: invalid filter", ErrInvalidArgument)

	// ErrBackendUnavailable indicates a connection or transport failure.
	// Safe to retry with backoff at the caller's discretion.
	ErrBackendUnavailable = errors.New("vector store backend unavailable")

	// ErrInvalidConfig indicates invalid store configuration. Raised only
	// before a backend is constructed, never mid-operation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
