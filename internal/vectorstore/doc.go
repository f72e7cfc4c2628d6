// Package vectorstore provides the vector storage abstraction for docvector.
//
// A Store holds named collections of embedded text chunks and answers
// similarity queries over them. Two backends implement the contract:
//
//   - ChromemStore: embedded chromem-go database, file-persisted,
//     zero external services. Used in local mode.
//   - QdrantStore: external Qdrant server over gRPC. Used in networked
//     and hybrid modes.
//
// NewStore selects and validates a backend from configuration. The
// returned Store is uninitialized; callers must call Initialize before
// the first operation and Close when done.
//
// Scores are similarity values in [0,1], higher is more similar. The
// embedded backend converts its native distances into that range per
// collection metric; the networked backend passes Qdrant's native
// scores through unchanged, so scores are comparable within one
// deployment but not across a backend switch.
package vectorstore
