// Package embeddings generates vector embeddings for text.
//
// Two providers are available: a local ONNX provider backed by
// fastembed-go (requires cgo and the ONNX runtime shared library) and an
// OpenAI-compatible API provider backed by langchaingo, which also works
// against TEI and other self-hosted OpenAI-compatible endpoints.
//
// NewProvider assembles a provider from configuration, layering on
// client-side rate limiting, metrics instrumentation, and an optional
// embedding cache so that the same (text, model) pair is never embedded
// twice.
package embeddings
