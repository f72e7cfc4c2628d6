// Package config provides configuration loading for docvector.
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"
)

// ErrInvalid indicates configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Valid vector store modes.
const (
	ModeLocal     = "local"
	ModeNetworked = "networked"
	ModeHybrid    = "hybrid"
)

// Config is the root configuration for docvector.
type Config struct {
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Ingest        IngestConfig        `koanf:"ingest"`
	Search        SearchConfig        `koanf:"search"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// VectorStoreConfig selects and configures the vector store backend.
//
// Mode determines which backend handles operations:
//   - local: embedded store, persisted under Path
//   - networked: external Qdrant server over gRPC
//   - hybrid: networked when reachable, with the same credential rules
type VectorStoreConfig struct {
	// Mode is one of "local", "networked", or "hybrid". Default: "local".
	Mode string `koanf:"mode"`

	// Collection is the default collection name. Default: "documents".
	Collection string `koanf:"collection"`

	// Path is the persistence directory for the local store.
	// Default: ~/.config/docvector/vectorstore
	Path string `koanf:"path"`

	// Compress enables gzip compression of persisted local store files.
	Compress bool `koanf:"compress"`

	// URL is a full Qdrant endpoint (e.g. https://xyz.cloud.qdrant.io:6334).
	// When set, APIKey must also be set. Takes precedence over Host/Port.
	URL string `koanf:"url"`

	// APIKey authenticates against a managed Qdrant endpoint.
	APIKey Secret `koanf:"api_key"`

	// Host is the Qdrant server hostname for self-hosted deployments.
	// Default: "localhost".
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334.
	Port int `koanf:"port"`

	// UseTLS enables TLS for the gRPC connection. Implied by https:// URLs.
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries is the retry budget for transient Qdrant failures. Default: 3.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial retry backoff, doubling per attempt.
	// Default: 1s.
	RetryBackoff Duration `koanf:"retry_backoff"`

	// HNSWM is the HNSW graph connectivity parameter. Default: 16.
	HNSWM int `koanf:"hnsw_m"`

	// HNSWEfConstruct is the HNSW construction beam width. Default: 100.
	HNSWEfConstruct int `koanf:"hnsw_ef_construct"`

	// IndexingThreshold is the point count at which Qdrant builds the
	// HNSW index. Default: 100 (low, so small corpora get indexed).
	IndexingThreshold int `koanf:"indexing_threshold"`
}

// EmbeddingsConfig configures the embedding provider and its cache.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX) or "openai" (OpenAI-compatible
	// API, including TEI endpoints). Default: "fastembed".
	Provider string `koanf:"provider"`

	// Model is the embedding model identifier.
	// Default: "sentence-transformers/all-MiniLM-L6-v2".
	Model string `koanf:"model"`

	// BaseURL overrides the OpenAI-compatible endpoint (e.g. local TEI).
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the remote embedding API.
	APIKey Secret `koanf:"api_key"`

	// BatchSize is the number of texts sent per provider call. Default: 32.
	BatchSize int `koanf:"batch_size"`

	// RateLimit is the maximum provider requests per second. Zero disables
	// client-side rate limiting. Default: 0.
	RateLimit float64 `koanf:"rate_limit"`

	// CacheDir is where fastembed stores downloaded ONNX models.
	// Default: ~/.config/docvector/models
	CacheDir string `koanf:"cache_dir"`

	// CacheEnabled enables the embedding cache. Default: true.
	CacheEnabled bool `koanf:"cache_enabled"`

	// CacheBackend is "memory" (LRU) or "badger" (persistent).
	// Default: "memory".
	CacheBackend string `koanf:"cache_backend"`

	// CachePath is the badger cache directory.
	// Default: ~/.config/docvector/embedcache
	CachePath string `koanf:"cache_path"`

	// CacheCapacity bounds the in-memory LRU entry count. Default: 100000.
	CacheCapacity int `koanf:"cache_capacity"`
}

// IngestConfig configures the document ingestion pipeline.
type IngestConfig struct {
	// ChunkSize is the target chunk length in characters. Default: 1000.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the character overlap between adjacent chunks.
	// Default: 200.
	ChunkOverlap int `koanf:"chunk_overlap"`

	// Workers is the batch ingestion pool size. Default: NumCPU/2, min 1.
	Workers int `koanf:"workers"`

	// LedgerPath is the badger directory for the ingestion ledger.
	// Default: ~/.config/docvector/ledger
	LedgerPath string `koanf:"ledger_path"`

	// ScrubSecrets removes detected credentials from chunk text before
	// embedding and storage. Default: true.
	ScrubSecrets bool `koanf:"scrub_secrets"`

	// ScrubAllowlist is an optional TOML file with [allowlist] regexes
	// excluded from secret detection. Empty skips allowlist loading.
	ScrubAllowlist string `koanf:"scrub_allowlist"`

	// AccessLevel is the default access level stamped on chunk payloads.
	// Default: "public".
	AccessLevel string `koanf:"access_level"`
}

// SearchConfig configures hybrid search and reranking.
type SearchConfig struct {
	// VectorWeight is the vector score weight in hybrid fusion. Default: 0.7.
	VectorWeight float64 `koanf:"vector_weight"`

	// KeywordWeight is the keyword score weight in hybrid fusion. Default: 0.3.
	// VectorWeight + KeywordWeight must equal 1.0.
	KeywordWeight float64 `koanf:"keyword_weight"`

	// MinScore filters fused results below this threshold. Default: 0.1.
	MinScore float64 `koanf:"min_score"`

	// UseReranking enables the multi-stage reranker. Default: true.
	UseReranking bool `koanf:"use_reranking"`

	// MaxTokens caps the cumulative token budget of returned results.
	// Zero disables token limiting. Default: 0.
	MaxTokens int `koanf:"max_tokens"`
}

// SamplingConfig bounds log volume for repeated entries.
type SamplingConfig struct {
	// Initial is the number of identical entries logged per second before
	// sampling kicks in.
	Initial int `koanf:"initial"`

	// Thereafter logs every Nth identical entry once sampling is active.
	Thereafter int `koanf:"thereafter"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error. Default: "info".
	Level string `koanf:"level"`

	// Format is "json" or "console". Default: "json".
	Format string `koanf:"format"`

	// Stdout enables the stdout core. Default: true.
	Stdout bool `koanf:"stdout"`

	// OTEL mirrors log entries to the OpenTelemetry log pipeline.
	OTEL bool `koanf:"otel"`

	// Sampling bounds log volume. Zero values disable sampling.
	Sampling SamplingConfig `koanf:"sampling"`
}

// ObservabilityConfig configures OpenTelemetry traces and metrics export.
type ObservabilityConfig struct {
	// Enabled turns on OTLP export. Default: false.
	Enabled bool `koanf:"enabled"`

	// ServiceName identifies this process in telemetry. Default: "docvector".
	ServiceName string `koanf:"service_name"`

	// ServiceVersion is reported as service.version.
	ServiceVersion string `koanf:"service_version"`

	// Endpoint is the OTLP collector endpoint. Default: "localhost:4317".
	Endpoint string `koanf:"endpoint"`

	// Protocol is "grpc" or "http/protobuf". Default: "grpc".
	Protocol string `koanf:"protocol"`

	// Insecure disables transport security. Only honored for local endpoints.
	Insecure bool `koanf:"insecure"`

	// SampleRate is the trace sampling ratio in [0.0, 1.0]. Default: 1.0.
	SampleRate float64 `koanf:"sample_rate"`

	// MetricInterval is the periodic metric export interval. Default: 60s.
	MetricInterval Duration `koanf:"metric_interval"`
}

// weightTolerance absorbs float rounding when checking the weight sum.
const weightTolerance = 1e-9

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.VectorStore.Mode == "" {
		c.VectorStore.Mode = ModeLocal
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "documents"
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = "~/.config/docvector/vectorstore"
	}
	if c.VectorStore.Host == "" {
		c.VectorStore.Host = "localhost"
	}
	if c.VectorStore.Port == 0 {
		c.VectorStore.Port = 6334
	}
	if c.VectorStore.MaxRetries == 0 {
		c.VectorStore.MaxRetries = 3
	}
	if c.VectorStore.RetryBackoff == 0 {
		c.VectorStore.RetryBackoff = Duration(time.Second)
	}
	if c.VectorStore.HNSWM == 0 {
		c.VectorStore.HNSWM = 16
	}
	if c.VectorStore.HNSWEfConstruct == 0 {
		c.VectorStore.HNSWEfConstruct = 100
	}
	if c.VectorStore.IndexingThreshold == 0 {
		c.VectorStore.IndexingThreshold = 100
	}

	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = "fastembed"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embeddings.BatchSize == 0 {
		c.Embeddings.BatchSize = 32
	}
	if c.Embeddings.CacheDir == "" {
		c.Embeddings.CacheDir = "~/.config/docvector/models"
	}
	if c.Embeddings.CacheBackend == "" {
		c.Embeddings.CacheBackend = "memory"
	}
	if c.Embeddings.CachePath == "" {
		c.Embeddings.CachePath = "~/.config/docvector/embedcache"
	}
	if c.Embeddings.CacheCapacity == 0 {
		c.Embeddings.CacheCapacity = 100_000
	}

	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 200
	}
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = max(runtime.NumCPU()/2, 1)
	}
	if c.Ingest.LedgerPath == "" {
		c.Ingest.LedgerPath = "~/.config/docvector/ledger"
	}
	if c.Ingest.AccessLevel == "" {
		c.Ingest.AccessLevel = "public"
	}

	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight = 0.7
		c.Search.KeywordWeight = 0.3
	}
	if c.Search.MinScore == 0 {
		c.Search.MinScore = 0.1
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "docvector"
	}
	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = "localhost:4317"
	}
	if c.Observability.Protocol == "" {
		c.Observability.Protocol = "grpc"
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	if c.Observability.MetricInterval == 0 {
		c.Observability.MetricInterval = Duration(60 * time.Second)
	}
}

// Validate checks the configuration for structural errors.
//
// Backend reachability is not checked here; the vector store factory and
// constructors own connection-time validation.
func (c *Config) Validate() error {
	switch c.VectorStore.Mode {
	case ModeLocal, ModeNetworked, ModeHybrid:
	default:
		return fmt.Errorf("%w: unknown vectorstore mode %q (valid modes: local, networked, hybrid)",
			ErrInvalid, c.VectorStore.Mode)
	}

	if c.VectorStore.Mode != ModeLocal {
		if err := c.validateNetworked(); err != nil {
			return err
		}
	}

	if c.VectorStore.Port < 1 || c.VectorStore.Port > 65535 {
		return fmt.Errorf("%w: vectorstore port must be in 1-65535, got %d", ErrInvalid, c.VectorStore.Port)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "openai":
	default:
		return fmt.Errorf("%w: unknown embeddings provider %q (valid providers: fastembed, openai)",
			ErrInvalid, c.Embeddings.Provider)
	}
	if c.Embeddings.BatchSize < 1 {
		return fmt.Errorf("%w: embeddings batch_size must be positive, got %d", ErrInvalid, c.Embeddings.BatchSize)
	}
	if c.Embeddings.RateLimit < 0 {
		return fmt.Errorf("%w: embeddings rate_limit cannot be negative", ErrInvalid)
	}
	switch c.Embeddings.CacheBackend {
	case "memory", "badger":
	default:
		return fmt.Errorf("%w: unknown cache backend %q (valid backends: memory, badger)",
			ErrInvalid, c.Embeddings.CacheBackend)
	}
	if c.Embeddings.CacheCapacity < 1 {
		return fmt.Errorf("%w: embeddings cache_capacity must be positive, got %d", ErrInvalid, c.Embeddings.CacheCapacity)
	}

	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("%w: ingest chunk_size must be positive, got %d", ErrInvalid, c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 {
		return fmt.Errorf("%w: ingest chunk_overlap cannot be negative, got %d", ErrInvalid, c.Ingest.ChunkOverlap)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: ingest chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalid, c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("%w: ingest workers must be positive, got %d", ErrInvalid, c.Ingest.Workers)
	}

	if err := c.Search.Validate(); err != nil {
		return err
	}

	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		return fmt.Errorf("%w: observability sample_rate must be in [0.0, 1.0], got %f",
			ErrInvalid, c.Observability.SampleRate)
	}
	switch c.Observability.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("%w: unknown observability protocol %q (valid protocols: grpc, http/protobuf)",
			ErrInvalid, c.Observability.Protocol)
	}

	return nil
}

// validateNetworked enforces the networked credential pairing rules.
// A URL requires an API key and vice versa; otherwise host+port serve.
func (c *Config) validateNetworked() error {
	if c.VectorStore.URL != "" && !c.VectorStore.APIKey.IsSet() {
		return fmt.Errorf("%w: vectorstore URL provided but API key missing; managed Qdrant endpoints require an API key",
			ErrInvalid)
	}
	if c.VectorStore.APIKey.IsSet() && c.VectorStore.URL == "" {
		return fmt.Errorf("%w: vectorstore API key provided but URL missing; set vectorstore.url or clear the API key",
			ErrInvalid)
	}
	return nil
}

// Validate checks search weights and thresholds.
func (s SearchConfig) Validate() error {
	if s.VectorWeight < 0 || s.VectorWeight > 1 {
		return fmt.Errorf("%w: search vector_weight must be in [0.0, 1.0], got %f", ErrInvalid, s.VectorWeight)
	}
	if s.KeywordWeight < 0 || s.KeywordWeight > 1 {
		return fmt.Errorf("%w: search keyword_weight must be in [0.0, 1.0], got %f", ErrInvalid, s.KeywordWeight)
	}
	if math.Abs(s.VectorWeight+s.KeywordWeight-1.0) > weightTolerance {
		return fmt.Errorf("%w: search weights must sum to 1.0, got vector_weight=%f keyword_weight=%f",
			ErrInvalid, s.VectorWeight, s.KeywordWeight)
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return fmt.Errorf("%w: search min_score must be in [0.0, 1.0], got %f", ErrInvalid, s.MinScore)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("%w: search max_tokens cannot be negative, got %d", ErrInvalid, s.MaxTokens)
	}
	return nil
}
