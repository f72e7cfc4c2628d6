package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/ingest"
	"github.com/fyrsmithlabs/docvector/internal/secrets"
)

// maxFetchSize caps one fetched document at 10MB.
const maxFetchSize = 10 * 1024 * 1024

var (
	// ingest command flags
	ingSource     string
	ingTitle      string
	ingCollection string
	ingJSON       bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingSource, "source", "cli", "Source identifier recorded in the ingestion ledger")
	ingestCmd.Flags().StringVar(&ingTitle, "title", "", "Document title (default: file name or URL path)")
	ingestCmd.Flags().StringVar(&ingCollection, "collection", "", "Target collection (default: configured collection)")
	ingestCmd.Flags().BoolVar(&ingJSON, "json", false, "Output stats as JSON")
}

// ingestCmd chunks, embeds, and stores documents
var ingestCmd = &cobra.Command{
	Use:   "ingest <url-or-file>...",
	Short: "Ingest documents into the vector store",
	Long: `Ingest documents: chunk, scrub secrets, embed, and store.

Each argument is an HTTP(S) URL, a file path, or "-" for stdin.
Re-ingesting unchanged content is a no-op; the ingestion ledger skips
documents whose (source, content hash) pair was already completed.

Examples:
  # Ingest a local file
  docvector ingest docs/guide.md

  # Ingest a page by URL
  docvector ingest https://example.com/docs/api.html

  # Ingest several files into a specific collection
  docvector ingest --collection runbooks ops/*.md

  # Ingest from stdin with an explicit title
  cat notes.txt | docvector ingest --title "Meeting notes" -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	docs := make([]ingest.Fetched, 0, len(args))
	for _, arg := range args {
		doc, err := fetchDocument(ctx, arg)
		if err != nil {
			return err
		}
		doc.SourceID = ingSource
		if ingTitle != "" {
			doc.Title = ingTitle
		}
		docs = append(docs, doc)
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	collection := ingCollection
	if collection == "" {
		collection = app.cfg.VectorStore.Collection
	}
	if err := app.ensureCollection(ctx, collection); err != nil {
		return err
	}

	ledgerPath, err := config.ExpandPath(app.cfg.Ingest.LedgerPath)
	if err != nil {
		return err
	}
	ledger, err := ingest.NewBadgerLedger(ledgerPath, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open ingestion ledger: %w", err)
	}
	defer ledger.Close()

	scrubber, err := secrets.NewScrubber(app.cfg.Ingest)
	if err != nil {
		return fmt.Errorf("failed to initialize secret scrubbing: %w", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Store:        app.store,
		Provider:     app.provider,
		Ledger:       ledger,
		Scrubber:     scrubber,
		Collection:   collection,
		AccessLevel:  app.cfg.Ingest.AccessLevel,
		ChunkSize:    app.cfg.Ingest.ChunkSize,
		ChunkOverlap: app.cfg.Ingest.ChunkOverlap,
		Logger:       app.logger,
	})
	if err != nil {
		return err
	}

	batch, err := ingest.NewBatchIngester(pipeline, app.cfg.Ingest.Workers, app.logger)
	if err != nil {
		return err
	}
	defer batch.Release()

	stats, err := batch.IngestAll(ctx, docs)
	if err != nil {
		return err
	}

	if ingJSON {
		return outputJSON(stats)
	}

	fmt.Printf("Ingested %d document(s): %d processed, %d skipped, %d failed, %d chunks written\n",
		stats.Fetched, stats.Processed, stats.Skipped, stats.Failed, stats.Chunks)
	if stats.Failed > 0 {
		for _, ingestErr := range stats.Errors {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ingestErr)
		}
		return fmt.Errorf("%d of %d documents failed", stats.Failed, stats.Fetched)
	}
	return nil
}

// fetchDocument reads one document from an HTTP(S) URL, a file path, or
// stdin ("-").
func fetchDocument(ctx context.Context, arg string) (ingest.Fetched, error) {
	if arg == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ingest.Fetched{}, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return ingest.Fetched{
			URL:     "stdin",
			Title:   "stdin",
			Content: string(content),
		}, nil
	}

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return fetchURL(ctx, arg)
	}

	content, err := os.ReadFile(arg)
	if err != nil {
		return ingest.Fetched{}, fmt.Errorf("failed to read file %s: %w", arg, err)
	}
	return ingest.Fetched{
		URL:      arg,
		Title:    filepath.Base(arg),
		Content:  string(content),
		MimeType: mimeTypeForFile(arg),
	}, nil
}

func fetchURL(ctx context.Context, rawURL string) (ingest.Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ingest.Fetched{}, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return ingest.Fetched{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ingest.Fetched{}, fmt.Errorf("fetching %s: server returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return ingest.Fetched{}, fmt.Errorf("failed to read response from %s: %w", rawURL, err)
	}
	if len(body) > maxFetchSize {
		return ingest.Fetched{}, fmt.Errorf("fetching %s: document exceeds %d bytes", rawURL, maxFetchSize)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return ingest.Fetched{
		URL:      rawURL,
		Title:    titleFromURL(rawURL),
		Content:  string(body),
		MimeType: strings.TrimSpace(mimeType),
	}, nil
}

// titleFromURL derives a display title from the last URL path segment,
// falling back to the host for bare domains.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
		return base
	}
	return u.Host
}

func mimeTypeForFile(name string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
