package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// BadgerLedger persists document status in BadgerDB so re-ingestion
// skipping survives process restarts.
type BadgerLedger struct {
	db *badger.DB
}

var _ Ledger = (*BadgerLedger)(nil)

// NewBadgerLedger opens (or creates) a badger-backed ledger at path.
func NewBadgerLedger(path string, logger *logging.Logger) (*BadgerLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: ledger path required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("ingest.ledger")

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = logging.NewBadgerAdapter(logger)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	return &BadgerLedger{db: db}, nil
}

// GetByHash returns the recorded document, or nil when the (source,
// hash) pair has never been seen.
func (l *BadgerLedger) GetByHash(ctx context.Context, sourceID, contentHash string) (*Document, error) {
	var doc *Document
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerKey(sourceID, contentHash)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc = &Document{}
			return json.Unmarshal(val, doc)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return doc, nil
}

// Put records the document's current state.
func (l *BadgerLedger) Put(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding ledger entry: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerKey(doc.SourceID, doc.ContentHash)), data)
	})
	if err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
