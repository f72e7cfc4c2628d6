package vectorstore

import (
	"fmt"
	"regexp"
)

// DistanceMetric selects how a backend compares vectors. Fixed at
// collection creation, not alterable afterward.
type DistanceMetric string

const (
	// MetricCosine compares by cosine distance. The default.
	MetricCosine DistanceMetric = "cosine"

	// MetricEuclidean compares by L2 distance.
	MetricEuclidean DistanceMetric = "euclidean"

	// MetricDot compares by inner product.
	MetricDot DistanceMetric = "dot"
)

// ParseDistanceMetric normalizes a metric name. Empty defaults to
// cosine; unknown names return ErrInvalidMetric.
func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch DistanceMetric(s) {
	case "":
		return MetricCosine, nil
	case MetricCosine, MetricEuclidean, MetricDot:
		return DistanceMetric(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid metrics: cosine, euclidean, dot)", ErrInvalidMetric, s)
	}
}

// collectionNamePattern validates collection names: lowercase
// alphanumeric start, then alphanumerics, underscores and hyphens,
// 64 characters max.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateCollectionName rejects names that could collide with
// filesystem paths or Qdrant naming rules.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match ^[a-z0-9][a-z0-9_-]{0,63}$", ErrInvalidCollectionName, name)
	}
	return nil
}

// VectorRecord is one embedded chunk as stored in a collection.
// Upserting the same ID again replaces the record wholesale.
type VectorRecord struct {
	// ID is the caller-assigned stable identifier, unique within a
	// collection.
	ID string

	// Vector is the embedding. Its length must equal the collection
	// dimension.
	Vector []float32

	// Payload carries JSON-compatible metadata used for both display
	// and filtering (content, document_id, title, access_level, ...).
	Payload map[string]any
}

// SearchResult is one search hit.
type SearchResult struct {
	// ID is the record identifier.
	ID string

	// Score is the similarity in [0,1], higher is more similar.
	Score float32

	// Payload is the stored record payload.
	Payload map[string]any

	// Vector is the stored embedding, populated only when
	// SearchOptions.WithVectors is set.
	Vector []float32
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	// Name is the collection name.
	Name string `json:"name"`

	// Dimension is the fixed vector length.
	Dimension int `json:"dimension"`

	// Metric is the distance metric chosen at creation.
	Metric DistanceMetric `json:"metric"`

	// VectorCount is the current number of stored records.
	VectorCount int `json:"vector_count"`
}

// SearchOptions tunes a similarity query.
type SearchOptions struct {
	// Limit is the maximum number of results. Must be positive.
	Limit int

	// Filters restricts results by payload. Keys map to either a
	// literal (equality) or an operator object such as
	// {"$in": [...]}; the operator set is documented in filter.go.
	Filters map[string]any

	// ScoreThreshold excludes results scoring below it. Nil disables
	// the cutoff.
	ScoreThreshold *float32

	// WithVectors includes stored vectors in results. Off by default
	// for payload size.
	WithVectors bool

	// Exact bypasses the approximate index and forces brute-force
	// scoring. Useful for small collections where the index is not
	// built yet.
	Exact bool
}

// Validate checks the options before a query is issued.
func (o SearchOptions) Validate() error {
	if o.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, o.Limit)
	}
	if o.ScoreThreshold != nil && (*o.ScoreThreshold < 0 || *o.ScoreThreshold > 1) {
		return fmt.Errorf("%w: score threshold must be in [0,1], got %v", ErrInvalidArgument, *o.ScoreThreshold)
	}
	return nil
}

// DeleteSelector names what to delete: explicit IDs, a payload filter,
// or both (intersection).
type DeleteSelector struct {
	IDs     []string
	Filters map[string]any
}

// Validate requires at least one selection criterion.
func (s DeleteSelector) Validate() error {
	if len(s.IDs) == 0 && len(s.Filters) == 0 {
		return fmt.Errorf("%w: delete requires ids or filters", ErrInvalidArgument)
	}
	return nil
}
