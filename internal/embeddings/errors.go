package embeddings

import "errors"

var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrFastEmbedUnavailable is returned when the local ONNX provider is
	// requested from a binary built without cgo.
	ErrFastEmbedUnavailable = errors.New("fastembed: not available (binary built without cgo, use the openai provider instead)")
)
