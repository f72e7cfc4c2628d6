package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status is a document's position in the ingestion lifecycle.
type Status string

const (
	// StatusPending marks a document that has been recorded but not
	// started.
	StatusPending Status = "pending"

	// StatusProcessing marks a document currently being chunked,
	// embedded, and stored.
	StatusProcessing Status = "processing"

	// StatusCompleted marks a fully ingested document. Re-ingesting the
	// same (source, content hash) pair is a no-op from here on.
	StatusCompleted Status = "completed"

	// StatusFailed marks a document whose processing errored; Error
	// holds the cause.
	StatusFailed Status = "failed"
)

// Fetched is a raw document handed to the pipeline by a fetcher.
type Fetched struct {
	// SourceID identifies where the document came from.
	SourceID string

	// URL is the document's location, used in chunk payloads.
	URL string

	// Title is the document title, if known.
	Title string

	// Content is the full text to ingest.
	Content string

	// MimeType is the declared content type, carried into payloads.
	MimeType string
}

// Document is the ledger record for one ingested document.
type Document struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	FetchedAt   time.Time `json:"fetched_at"`
	ProcessedAt time.Time `json:"processed_at,omitempty"`
}

// HashContent returns the hex SHA-256 of content, the dedup key for
// idempotent re-ingestion.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
