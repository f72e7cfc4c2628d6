package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docvector/internal/embeddings"
	"github.com/fyrsmithlabs/docvector/internal/logging"
	"github.com/fyrsmithlabs/docvector/internal/secrets"
	"github.com/fyrsmithlabs/docvector/internal/vectorstore"
)

var tracer = otel.Tracer("docvector.ingest")

// PipelineConfig wires the pipeline's collaborators and chunking
// parameters.
type PipelineConfig struct {
	// Store receives the chunk records. Required.
	Store vectorstore.Store

	// Provider embeds chunk texts. Wrap it with the embedding cache to
	// get cache-first batching. Required.
	Provider embeddings.Provider

	// Ledger tracks document status. Required.
	Ledger Ledger

	// Scrubber redacts credentials from chunk content before embedding.
	// Nil disables scrubbing.
	Scrubber secrets.Scrubber

	// Collection is the target collection name. Required.
	Collection string

	// AccessLevel is stamped on every chunk payload for later
	// filtering. Default: "public".
	AccessLevel string

	// ChunkSize and ChunkOverlap parameterize the splitter; both are
	// validated by NewChunker.
	ChunkSize    int
	ChunkOverlap int

	// Logger receives pipeline events. Nil falls back to a no-op.
	Logger *logging.Logger
}

// Pipeline ingests documents one at a time: hash, dedup against the
// ledger, chunk, scrub, embed, and upsert all chunk records in a single
// store call.
type Pipeline struct {
	store       vectorstore.Store
	provider    embeddings.Provider
	ledger      Ledger
	scrubber    secrets.Scrubber
	chunker     *Chunker
	collection  string
	accessLevel string
	logger      *logging.Logger
}

// IngestResult is the outcome for one document.
type IngestResult struct {
	// Document is the ledger record after this call.
	Document *Document

	// Skipped reports that the (source, hash) pair was already
	// completed and nothing was embedded or stored.
	Skipped bool
}

// NewPipeline validates the configuration and builds a pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store required", ErrInvalidConfig)
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: embedding provider required", ErrInvalidConfig)
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}

	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	scrubber := cfg.Scrubber
	if scrubber == nil {
		scrubber = &secrets.NoopScrubber{}
	}
	accessLevel := cfg.AccessLevel
	if accessLevel == "" {
		accessLevel = "public"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Pipeline{
		store:       cfg.Store,
		provider:    cfg.Provider,
		ledger:      cfg.Ledger,
		scrubber:    scrubber,
		chunker:     chunker,
		collection:  cfg.Collection,
		accessLevel: accessLevel,
		logger:      logger.Named("ingest"),
	}, nil
}

// IngestDocument runs one fetched document through the pipeline. A
// document whose (source, content hash) pair is already completed is
// skipped with zero store writes. Failures are recorded on the
// document's ledger entry and returned.
func (p *Pipeline) IngestDocument(ctx context.Context, fetched Fetched) (*IngestResult, error) {
	ctx, span := tracer.Start(ctx, "ingest.document",
		trace.WithAttributes(
			attribute.String("source_id", fetched.SourceID),
			attribute.String("url", fetched.URL),
			attribute.Int("content_length", len(fetched.Content)),
		),
	)
	defer span.End()

	hash := HashContent(fetched.Content)

	existing, err := p.ledger.GetByHash(ctx, fetched.SourceID, hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("looking up document: %w", err)
	}
	if existing != nil && existing.Status == StatusCompleted {
		p.logger.Debug(ctx, "document already ingested",
			zap.String("document_id", existing.ID),
			zap.String("source_id", fetched.SourceID),
			zap.String("url", fetched.URL),
		)
		span.SetAttributes(attribute.Bool("skipped", true))
		span.SetStatus(codes.Ok, "")
		return &IngestResult{Document: existing, Skipped: true}, nil
	}

	doc := existing
	if doc == nil {
		doc = &Document{
			ID:          uuid.NewString(),
			SourceID:    fetched.SourceID,
			ContentHash: hash,
			Status:      StatusPending,
			FetchedAt:   time.Now().UTC(),
		}
	}
	// A retried document may arrive with corrected fetch metadata.
	doc.URL = fetched.URL
	doc.Title = fetched.Title
	doc.Status = StatusProcessing
	doc.Error = ""
	if err := p.ledger.Put(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("recording document: %w", err)
	}

	stored, err := p.processChunks(ctx, doc, fetched)
	if err != nil {
		p.fail(ctx, doc, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &IngestResult{Document: doc}, fmt.Errorf("ingesting %s: %w", fetched.URL, err)
	}

	doc.Status = StatusCompleted
	doc.ChunkCount = stored
	doc.ProcessedAt = time.Now().UTC()
	if err := p.ledger.Put(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &IngestResult{Document: doc}, fmt.Errorf("recording document: %w", err)
	}

	p.logger.Info(ctx, "document ingested",
		zap.String("document_id", doc.ID),
		zap.String("source_id", doc.SourceID),
		zap.Int("chunks", stored),
	)
	span.SetAttributes(attribute.Int("chunks", stored))
	span.SetStatus(codes.Ok, "")
	return &IngestResult{Document: doc}, nil
}

// processChunks chunks, scrubs, embeds, and stores the document's
// content, returning the number of records written.
func (p *Pipeline) processChunks(ctx context.Context, doc *Document, fetched Fetched) (int, error) {
	chunks := p.chunker.Split(fetched.Content)
	if len(chunks) == 0 {
		return 0, nil
	}

	if p.scrubber.IsEnabled() {
		for i := range chunks {
			res := p.scrubber.Scrub(chunks[i].Content)
			if res.HasFindings() {
				p.logger.Warn(ctx, "redacted secrets from chunk",
					zap.String("document_id", doc.ID),
					zap.Int("chunk_index", chunks[i].Index),
					zap.Strings("rules", res.RuleIDs()),
					zap.Int("findings", len(res.Findings)),
				)
				chunks[i].Content = res.Scrubbed
			}
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := p.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	records := make([]vectorstore.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			p.logger.Warn(ctx, "missing embedding for chunk, skipping",
				zap.String("document_id", doc.ID),
				zap.Int("chunk_index", chunk.Index),
			)
			continue
		}
		records = append(records, vectorstore.VectorRecord{
			ID:      chunkID(doc.ID, chunk.Index),
			Vector:  vectors[i],
			Payload: p.chunkPayload(doc, fetched, chunk),
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	count, err := p.store.Upsert(ctx, p.collection, records)
	if err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	p.logger.Debug(ctx, "chunks stored",
		zap.String("document_id", doc.ID),
		zap.Int("count", count),
	)
	return count, nil
}

// chunkID is deterministic so re-processing a document replaces its
// records instead of appending new ones.
func chunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

func (p *Pipeline) chunkPayload(doc *Document, fetched Fetched, chunk Chunk) map[string]any {
	payload := map[string]any{
		"chunk_id":     chunkID(doc.ID, chunk.Index),
		"document_id":  doc.ID,
		"source_id":    doc.SourceID,
		"content":      chunk.Content,
		"title":        doc.Title,
		"url":          doc.URL,
		"access_level": p.accessLevel,
		"chunk_index":  chunk.Index,
	}
	if fetched.MimeType != "" {
		payload["mime_type"] = fetched.MimeType
	}
	return payload
}

// fail records the failure on the ledger entry; ledger write errors are
// logged, not returned, so the original cause survives.
func (p *Pipeline) fail(ctx context.Context, doc *Document, cause error) {
	doc.Status = StatusFailed
	doc.Error = cause.Error()
	doc.ProcessedAt = time.Now().UTC()
	if err := p.ledger.Put(ctx, doc); err != nil {
		p.logger.Error(ctx, "recording failed document",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
	p.logger.Error(ctx, "document ingestion failed",
		zap.String("document_id", doc.ID),
		zap.String("url", doc.URL),
		zap.Error(cause),
	)
}
