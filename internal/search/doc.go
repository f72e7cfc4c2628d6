// Package search runs hybrid retrieval over a vector store.
//
// A query is embedded and searched against the store, over-fetching
// when post-filtering or reranking will shrink the candidate set. In
// hybrid mode the vector score is fused with a keyword term-overlap
// score using configured weights; a topic filter and the multi-stage
// reranker then reorder and trim the candidates, and an optional token
// budget caps the cumulative content size of what is returned.
//
// The engine is stateless per call: nothing is cached across queries.
package search
