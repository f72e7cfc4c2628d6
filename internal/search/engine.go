package search

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/docvector/internal/embeddings"
	"github.com/fyrsmithlabs/docvector/internal/logging"
	"github.com/fyrsmithlabs/docvector/internal/reranker"
	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

var tracer = otel.Tracer("docvector.search")

const (
	// DefaultLimit is the result count when the caller does not set one.
	DefaultLimit = 10

	// overfetchFactor widens the first-stage fetch when reranking or a
	// topic filter will discard candidates.
	overfetchFactor = 3

	// DefaultVectorWeight and DefaultKeywordWeight are the fusion
	// weights when none are configured.
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3

	// weightTolerance absorbs float rounding when checking the sum.
	weightTolerance = 0.01

	// topicsKey is the filter key applied post-hoc instead of being
	// sent to the store.
	topicsKey = "topics"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	// ModeHybrid fuses vector similarity with keyword overlap. The
	// default.
	ModeHybrid Mode = "hybrid"

	// ModeVector ranks by vector similarity alone.
	ModeVector Mode = "vector"
)

// Options tune a single Search call.
type Options struct {
	// Limit is the maximum number of results. Default: DefaultLimit.
	Limit int

	// Mode selects hybrid or vector-only retrieval. Default: ModeHybrid.
	Mode Mode

	// Filters restrict results by payload. The "topics" key is popped
	// and applied as a case-insensitive post-filter rather than being
	// sent to the store.
	Filters map[string]any

	// ScoreThreshold excludes first-stage results whose vector score
	// falls below it. Nil disables the cutoff.
	ScoreThreshold *float32

	// UseReranking runs candidates through the reranker.
	UseReranking bool

	// MaxTokens caps the cumulative content token count of returned
	// results. Zero disables the budget.
	MaxTokens int
}

// Result is one search hit with its component scores.
type Result struct {
	// ID is the chunk record ID.
	ID string

	// DocumentID identifies the parent document.
	DocumentID string

	// Content is the stored chunk text.
	Content string

	// Title and URL describe the parent document.
	Title string
	URL   string

	// VectorScore is the store similarity in [0,1].
	VectorScore float32

	// KeywordScore is the query term overlap in [0,1]. Zero in vector
	// mode.
	KeywordScore float32

	// Score orders the results: the fused score, replaced by the
	// reranker's final score when reranking runs.
	Score float32

	// Signals are the stored quality signals, populated when reranking
	// runs.
	Signals reranker.QualitySignals

	// Payload is the full stored payload.
	Payload map[string]any
}

// EngineConfig wires the engine's collaborators and fusion weights.
type EngineConfig struct {
	// Store serves the first-stage vector search. Required.
	Store vectorstore.Store

	// Provider embeds queries. Required.
	Provider embeddings.Provider

	// Reranker reorders candidates when a call asks for it. Nil gets
	// the default multi-stage reranker.
	Reranker reranker.Reranker

	// Collection is the collection searched. Required.
	Collection string

	// VectorWeight and KeywordWeight blend vector and keyword scores in
	// hybrid mode. Both zero selects the defaults; otherwise they must
	// be non-negative and sum to 1.0.
	VectorWeight  float64
	KeywordWeight float64

	// TokenModel names the tokenizer model used for token budgets.
	// Empty selects a character-length estimate.
	TokenModel string

	// Logger receives engine events. Nil falls back to a no-op.
	Logger *logging.Logger
}

// Engine answers queries against one collection. Stateless per call
// and safe for concurrent use.
type Engine struct {
	store         vectorstore.Store
	provider      embeddings.Provider
	reranker      reranker.Reranker
	counter       *TokenCounter
	collection    string
	vectorWeight  float32
	keywordWeight float32
	logger        *logging.Logger
}

// NewEngine validates the configuration and builds an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store required", ErrInvalidConfig)
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: embedding provider required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}

	vw, kw := cfg.VectorWeight, cfg.KeywordWeight
	if vw == 0 && kw == 0 {
		vw, kw = DefaultVectorWeight, DefaultKeywordWeight
	}
	if vw < 0 || kw < 0 {
		return nil, fmt.Errorf("%w: fusion weights cannot be negative, got %f/%f", ErrInvalidConfig, vw, kw)
	}
	if math.Abs(vw+kw-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: vector_weight %f + keyword_weight %f must sum to 1.0", ErrInvalidConfig, vw, kw)
	}

	rr := cfg.Reranker
	if rr == nil {
		var err error
		rr, err = reranker.NewMultiStageReranker(reranker.DefaultWeights())
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Engine{
		store:         cfg.Store,
		provider:      cfg.Provider,
		reranker:      rr,
		counter:       NewTokenCounter(cfg.TokenModel),
		collection:    cfg.Collection,
		vectorWeight:  float32(vw),
		keywordWeight: float32(kw),
		logger:        logger.Named("search"),
	}, nil
}

// Search embeds the query, retrieves candidates, fuses keyword scores
// in hybrid mode, applies the topic filter and optional reranking, and
// trims the ordered results to the limit and token budget.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	mode := opts.Mode
	switch mode {
	case "":
		mode = ModeHybrid
	case ModeHybrid, ModeVector:
	default:
		return nil, fmt.Errorf("%w: %q (valid modes: hybrid, vector)", ErrInvalidMode, opts.Mode)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	filters, topic := popTopics(opts.Filters)

	// Over-fetch to leave room for post-filtering and reranking.
	fetchLimit := limit
	if opts.UseReranking || topic != "" {
		fetchLimit = limit * overfetchFactor
	}

	ctx, span := tracer.Start(ctx, "search.query",
		trace.WithAttributes(
			attribute.String("collection", e.collection),
			attribute.String("mode", string(mode)),
			attribute.Int("limit", limit),
			attribute.Int("fetch_limit", fetchLimit),
			attribute.Bool("rerank", opts.UseReranking),
		),
	)
	defer span.End()

	queryVector, err := e.provider.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := e.store.Search(ctx, e.collection, queryVector, vectorstore.SearchOptions{
		Limit:          fetchLimit,
		Filters:        filters,
		ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching %s: %w", e.collection, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = resultFromHit(hit)
	}

	if mode == ModeHybrid {
		if err := e.fuseKeywordScores(ctx, query, results); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if topic != "" {
		kept := make([]Result, 0, len(results))
		for _, result := range results {
			if matchesTopic(result.Payload, topic) {
				kept = append(kept, result)
			}
		}
		results = kept
	}

	if opts.UseReranking && len(results) > 0 {
		results, err = e.rerank(ctx, query, results, limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	if opts.MaxTokens > 0 {
		results = limitToTokenBudget(results, opts.MaxTokens, e.counter)
	}

	e.logger.Debug(ctx, "search completed",
		zap.String("collection", e.collection),
		zap.String("mode", string(mode)),
		zap.Int("limit", limit),
		zap.Bool("rerank", opts.UseReranking),
		zap.Int("results", len(results)),
	)
	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// Close releases the reranker. The store and provider belong to the
// caller.
func (e *Engine) Close() error {
	return e.reranker.Close()
}

// fuseKeywordScores blends each candidate's keyword overlap with its
// vector score and re-sorts by the fused score. Candidates are scored
// concurrently; ties keep the store's order. A query with no usable
// tokens leaves the vector ranking untouched.
func (e *Engine) fuseKeywordScores(ctx context.Context, query string, results []Result) error {
	if len(results) == 0 {
		return nil
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kw := termOverlap(queryTokens, tokenize(results[i].Content))
			results[i].KeywordScore = kw
			results[i].Score = e.vectorWeight*results[i].VectorScore + e.keywordWeight*kw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("scoring candidates: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return nil
}

// rerank passes candidates through the reranker and rebuilds the
// result list in reranked order with final scores and signals.
func (e *Engine) rerank(ctx context.Context, query string, results []Result, limit int) ([]Result, error) {
	candidates := make([]reranker.Candidate, len(results))
	for i, result := range results {
		candidates[i] = reranker.Candidate{
			ID:      result.ID,
			Content: result.Content,
			Score:   result.Score,
			Payload: result.Payload,
		}
	}

	ranked, err := e.reranker.Rerank(ctx, query, candidates, limit)
	if err != nil {
		return nil, fmt.Errorf("reranking candidates: %w", err)
	}

	reordered := make([]Result, len(ranked))
	for i, r := range ranked {
		result := results[r.OriginalRank]
		result.Score = r.FinalScore
		result.Signals = r.Signals
		reordered[i] = result
	}
	return reordered, nil
}

// popTopics splits the topic filter from the store filters without
// mutating the caller's map. A non-string topics value reads as no
// topic filter.
func popTopics(filters map[string]any) (map[string]any, string) {
	raw, ok := filters[topicsKey]
	if !ok {
		return filters, ""
	}
	remaining := make(map[string]any, len(filters)-1)
	for k, v := range filters {
		if k == topicsKey {
			continue
		}
		remaining[k] = v
	}
	if len(remaining) == 0 {
		remaining = nil
	}
	topic, _ := raw.(string)
	return remaining, topic
}

// matchesTopic reports whether the payload's topics list contains the
// topic, case-insensitively. Topics arrive as []any after a payload
// round-trip; direct Go callers may store []string.
func matchesTopic(payload map[string]any, topic string) bool {
	raw, ok := payload[topicsKey]
	if !ok {
		return false
	}
	switch list := raw.(type) {
	case []string:
		for _, t := range list {
			if strings.EqualFold(t, topic) {
				return true
			}
		}
	case []any:
		for _, item := range list {
			if t, ok := item.(string); ok && strings.EqualFold(t, topic) {
				return true
			}
		}
	}
	return false
}

func resultFromHit(hit vectorstore.SearchResult) Result {
	return Result{
		ID:          hit.ID,
		DocumentID:  payloadString(hit.Payload, "document_id"),
		Content:     payloadString(hit.Payload, "content"),
		Title:       payloadString(hit.Payload, "title"),
		URL:         payloadString(hit.Payload, "url"),
		VectorScore: hit.Score,
		Score:       hit.Score,
		Payload:     hit.Payload,
	}
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}
