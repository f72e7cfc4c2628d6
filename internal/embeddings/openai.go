package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint. Leave empty for api.openai.com;
	// point it at TEI or any other OpenAI-compatible server.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey authenticates the request. Optional for TEI.
	APIKey string

	// BatchSize is the number of texts sent per API call. Defaults to
	// langchaingo's internal batching when zero.
	BatchSize int
}

// OpenAIProvider generates embeddings through an OpenAI-compatible API.
type OpenAIProvider struct {
	embedder  *lcembeddings.EmbedderImpl
	model     string
	dimension int
}

// NewOpenAIProvider creates a provider backed by langchaingo's OpenAI
// client. The client speaks the OpenAI embeddings API, which TEI and
// most self-hosted inference servers also implement.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for endpoints that ignore it.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedderOpts := []lcembeddings.Option{
		lcembeddings.WithStripNewLines(true),
	}
	if cfg.BatchSize > 0 {
		embedderOpts = append(embedderOpts, lcembeddings.WithBatchSize(cfg.BatchSize))
	}

	embedder, err := lcembeddings.NewEmbedder(llm, embedderOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:  embedder,
		model:     cfg.Model,
		dimension: ModelDimension(cfg.Model),
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close is a no-op; the underlying HTTP client holds no resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
