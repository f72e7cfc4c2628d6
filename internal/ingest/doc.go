// Package ingest turns fetched documents into embedded, stored vector
// records.
//
// The pipeline hashes content for idempotent re-ingestion, splits it
// into overlapping chunks, optionally scrubs credentials, embeds the
// chunk texts cache-first through the configured provider, and upserts
// all of a document's chunk records in a single store call. Document
// status (pending, processing, completed, failed) is tracked in a
// Ledger; a document whose (source, content hash) pair is already
// completed is skipped without touching the store.
//
// BatchIngester runs many documents through the pipeline on a worker
// pool with per-document failure isolation.
package ingest
