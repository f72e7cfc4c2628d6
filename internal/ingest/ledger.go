package ingest

import (
	"context"
	"sync"
)

// Ledger records document ingestion status keyed by (source, content
// hash). It is the idempotence check for re-ingestion: a completed
// entry for the same pair means the document is skipped entirely.
//
// Implementations must be safe for concurrent use.
type Ledger interface {
	// GetByHash returns the document recorded for (sourceID,
	// contentHash), or nil when the pair has never been seen.
	GetByHash(ctx context.Context, sourceID, contentHash string) (*Document, error)

	// Put records the document's current state, replacing any previous
	// entry for its (source, hash) pair.
	Put(ctx context.Context, doc *Document) error

	// Close releases the ledger's resources.
	Close() error
}

// MemoryLedger is a process-local Ledger. Entries are lost on restart,
// so re-ingestion skipping only holds within one process lifetime.
type MemoryLedger struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{docs: make(map[string]Document)}
}

// GetByHash returns a copy of the stored document, or nil.
func (l *MemoryLedger) GetByHash(ctx context.Context, sourceID, contentHash string) (*Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	doc, ok := l.docs[ledgerKey(sourceID, contentHash)]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// Put stores a copy of doc.
func (l *MemoryLedger) Put(ctx context.Context, doc *Document) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.docs[ledgerKey(doc.SourceID, doc.ContentHash)] = *doc
	return nil
}

// Len returns the number of recorded documents.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// Close is a no-op.
func (l *MemoryLedger) Close() error { return nil }

func ledgerKey(sourceID, contentHash string) string {
	return "doc:" + sourceID + ":" + contentHash
}
