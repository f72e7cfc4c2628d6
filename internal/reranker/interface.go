// Package reranker reorders search candidates using stored quality
// signals in addition to retrieval similarity.
package reranker

import (
	"context"
)

// Candidate is one search hit entering the reranker.
type Candidate struct {
	// ID is the chunk record identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the relevance score produced by the search stage, in
	// [0,1]. For hybrid search this is the fused vector+keyword score.
	Score float32

	// Payload is the stored chunk payload; quality signals are read
	// from it when present.
	Payload map[string]any
}

// QualitySignals are the optional per-chunk quality scores recorded at
// ingestion time, each in [0,1]. A nil field means the signal was not
// stored for the chunk.
type QualitySignals struct {
	// Relevance scores how well the chunk answers its own topic.
	Relevance *float32

	// CodeQuality scores embedded code samples.
	CodeQuality *float32

	// Formatting scores structural cleanliness.
	Formatting *float32

	// Metadata scores how richly the chunk is annotated.
	Metadata *float32

	// Initialization scores setup and getting-started guidance.
	Initialization *float32
}

// Ranked is a candidate with its final ranking outcome.
type Ranked struct {
	Candidate

	// FinalScore is the blended score the result is ordered by, in
	// [0,1].
	FinalScore float32

	// Signals holds the quality signals that contributed to FinalScore.
	Signals QualitySignals

	// OriginalRank is the candidate's position before reranking,
	// 0-indexed.
	OriginalRank int
}

// Reranker reorders search candidates. Implementations sort by their
// own final score, descending, and truncate to topK.
type Reranker interface {
	// Rerank reorders candidates for query and returns at most topK
	// results. A non-positive topK returns all candidates. The caller
	// is responsible for ensuring ctx is not nil.
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Ranked, error)

	// Close releases any resources held by the reranker.
	Close() error
}
