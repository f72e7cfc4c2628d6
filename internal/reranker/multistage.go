package reranker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// ErrInvalidWeights indicates a weight set that does not form a
// convex combination.
var ErrInvalidWeights = errors.New("invalid reranker weights")

// Payload keys the reranker reads quality signals from. Written by the
// indexing side when a chunk has been quality-scored.
const (
	keyRelevance      = "relevance_score"
	keyCodeQuality    = "code_quality_score"
	keyFormatting     = "formatting_score"
	keyMetadata       = "metadata_score"
	keyInitialization = "initialization_score"
)

// weightSumTolerance absorbs float rounding when checking the sum.
const weightSumTolerance = 0.01

// Weights control how much each component contributes to the final
// score. All weights must be non-negative and sum to 1.0.
type Weights struct {
	// Similarity weights the incoming search score.
	Similarity float64

	// Relevance weights the stored relevance signal.
	Relevance float64

	// CodeQuality weights the stored code-quality signal.
	CodeQuality float64

	// Formatting weights the stored formatting signal.
	Formatting float64

	// Metadata weights the stored metadata-richness signal.
	Metadata float64

	// Initialization weights the stored initialization-guidance signal.
	Initialization float64
}

// DefaultWeights favor retrieval similarity while letting strong
// quality signals reorder close candidates.
func DefaultWeights() Weights {
	return Weights{
		Similarity:     0.40,
		Relevance:      0.20,
		CodeQuality:    0.15,
		Formatting:     0.10,
		Metadata:       0.05,
		Initialization: 0.10,
	}
}

// Validate checks that the weights form a convex combination.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"similarity":     w.Similarity,
		"relevance":      w.Relevance,
		"code_quality":   w.CodeQuality,
		"formatting":     w.Formatting,
		"metadata":       w.Metadata,
		"initialization": w.Initialization,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s weight cannot be negative, got %f", ErrInvalidWeights, name, v)
		}
	}
	sum := w.Similarity + w.Relevance + w.CodeQuality + w.Formatting + w.Metadata + w.Initialization
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %f", ErrInvalidWeights, sum)
	}
	return nil
}

// MultiStageReranker blends the first-stage retrieval score with the
// quality signals stored on each chunk. Signals a chunk does not carry
// contribute nothing: the remaining weights are renormalized, so a
// chunk with no signals at all ranks purely by its retrieval score.
type MultiStageReranker struct {
	weights Weights
}

var _ Reranker = (*MultiStageReranker)(nil)

// NewMultiStageReranker validates weights and builds a reranker. Zero
// weights fall back to DefaultWeights.
func NewMultiStageReranker(weights Weights) (*MultiStageReranker, error) {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &MultiStageReranker{weights: weights}, nil
}

// Rerank scores every candidate, sorts by final score descending, and
// truncates to topK. Ties keep their original rank order.
func (r *MultiStageReranker) Rerank(ctx context.Context, _ string, candidates []Candidate, topK int) ([]Ranked, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(candidates) == 0 {
		return []Ranked{}, nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	ranked := make([]Ranked, len(candidates))
	for i, cand := range candidates {
		signals := signalsFromPayload(cand.Payload)
		ranked[i] = Ranked{
			Candidate:    cand,
			FinalScore:   r.finalScore(cand.Score, signals),
			Signals:      signals,
			OriginalRank: i,
		}
	}

	// Candidates arrive in search-rank order, so a stable sort breaks
	// score ties by original rank.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	return ranked[:topK], nil
}

// Close releases nothing; the reranker holds no resources.
func (r *MultiStageReranker) Close() error {
	return nil
}

// finalScore computes the weighted blend over the components the chunk
// actually carries. The retrieval score is always present.
func (r *MultiStageReranker) finalScore(searchScore float32, signals QualitySignals) float32 {
	sum := float64(clampSignal(searchScore)) * r.weights.Similarity
	weight := r.weights.Similarity

	add := func(signal *float32, w float64) {
		if signal == nil {
			return
		}
		sum += float64(*signal) * w
		weight += w
	}
	add(signals.Relevance, r.weights.Relevance)
	add(signals.CodeQuality, r.weights.CodeQuality)
	add(signals.Formatting, r.weights.Formatting)
	add(signals.Metadata, r.weights.Metadata)
	add(signals.Initialization, r.weights.Initialization)

	if weight <= 0 {
		return clampSignal(searchScore)
	}
	return float32(sum / weight)
}

// signalsFromPayload extracts the stored quality signals. Values
// arrive as float64 after a payload round-trip; direct Go callers may
// pass float32 or int. Anything else reads as absent.
func signalsFromPayload(payload map[string]any) QualitySignals {
	return QualitySignals{
		Relevance:      signalValue(payload, keyRelevance),
		CodeQuality:    signalValue(payload, keyCodeQuality),
		Formatting:     signalValue(payload, keyFormatting),
		Metadata:       signalValue(payload, keyMetadata),
		Initialization: signalValue(payload, keyInitialization),
	}
}

func signalValue(payload map[string]any, key string) *float32 {
	if payload == nil {
		return nil
	}
	raw, ok := payload[key]
	if !ok {
		return nil
	}

	var v float32
	switch n := raw.(type) {
	case float64:
		v = float32(n)
	case float32:
		v = n
	case int:
		v = float32(n)
	case int64:
		v = float32(n)
	default:
		return nil
	}
	v = clampSignal(v)
	return &v
}

func clampSignal(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
