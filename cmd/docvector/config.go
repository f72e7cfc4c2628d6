package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect docvector configuration",
}

// configShowCmd prints the merged configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after defaults, the config file,
and environment overrides are merged. API keys are redacted.

Examples:
  # Show effective configuration
  docvector config show

  # Show configuration from a specific file
  docvector config show --config /etc/docvector/config.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configFile)
	if err != nil {
		return err
	}

	// YAML-shaped so values can be copied straight into config.yaml.
	fmt.Println("vectorstore:")
	fmt.Printf("  mode: %q\n", cfg.VectorStore.Mode)
	fmt.Printf("  collection: %q\n", cfg.VectorStore.Collection)
	fmt.Printf("  path: %q\n", cfg.VectorStore.Path)
	fmt.Printf("  compress: %t\n", cfg.VectorStore.Compress)
	fmt.Printf("  host: %q\n", cfg.VectorStore.Host)
	fmt.Printf("  port: %d\n", cfg.VectorStore.Port)
	fmt.Printf("  use_tls: %t\n", cfg.VectorStore.UseTLS)
	fmt.Printf("  url: %q\n", cfg.VectorStore.URL)
	fmt.Printf("  api_key: %q\n", cfg.VectorStore.APIKey)
	fmt.Printf("  max_retries: %d\n", cfg.VectorStore.MaxRetries)
	fmt.Printf("  retry_backoff: %q\n", cfg.VectorStore.RetryBackoff.Duration())
	fmt.Printf("  hnsw_m: %d\n", cfg.VectorStore.HNSWM)
	fmt.Printf("  hnsw_ef_construct: %d\n", cfg.VectorStore.HNSWEfConstruct)
	fmt.Printf("  indexing_threshold: %d\n", cfg.VectorStore.IndexingThreshold)

	fmt.Println("embeddings:")
	fmt.Printf("  provider: %q\n", cfg.Embeddings.Provider)
	fmt.Printf("  model: %q\n", cfg.Embeddings.Model)
	fmt.Printf("  base_url: %q\n", cfg.Embeddings.BaseURL)
	fmt.Printf("  api_key: %q\n", cfg.Embeddings.APIKey)
	fmt.Printf("  batch_size: %d\n", cfg.Embeddings.BatchSize)
	fmt.Printf("  rate_limit: %g\n", cfg.Embeddings.RateLimit)
	fmt.Printf("  cache_dir: %q\n", cfg.Embeddings.CacheDir)
	fmt.Printf("  cache_enabled: %t\n", cfg.Embeddings.CacheEnabled)
	fmt.Printf("  cache_backend: %q\n", cfg.Embeddings.CacheBackend)
	fmt.Printf("  cache_path: %q\n", cfg.Embeddings.CachePath)
	fmt.Printf("  cache_capacity: %d\n", cfg.Embeddings.CacheCapacity)

	fmt.Println("ingest:")
	fmt.Printf("  chunk_size: %d\n", cfg.Ingest.ChunkSize)
	fmt.Printf("  chunk_overlap: %d\n", cfg.Ingest.ChunkOverlap)
	fmt.Printf("  workers: %d\n", cfg.Ingest.Workers)
	fmt.Printf("  ledger_path: %q\n", cfg.Ingest.LedgerPath)
	fmt.Printf("  scrub_secrets: %t\n", cfg.Ingest.ScrubSecrets)
	fmt.Printf("  scrub_allowlist: %q\n", cfg.Ingest.ScrubAllowlist)
	fmt.Printf("  access_level: %q\n", cfg.Ingest.AccessLevel)

	fmt.Println("search:")
	fmt.Printf("  vector_weight: %g\n", cfg.Search.VectorWeight)
	fmt.Printf("  keyword_weight: %g\n", cfg.Search.KeywordWeight)
	fmt.Printf("  min_score: %g\n", cfg.Search.MinScore)
	fmt.Printf("  use_reranking: %t\n", cfg.Search.UseReranking)
	fmt.Printf("  max_tokens: %d\n", cfg.Search.MaxTokens)

	fmt.Println("logging:")
	fmt.Printf("  level: %q\n", cfg.Logging.Level)
	fmt.Printf("  format: %q\n", cfg.Logging.Format)
	fmt.Printf("  stdout: %t\n", cfg.Logging.Stdout)
	fmt.Printf("  otel: %t\n", cfg.Logging.OTEL)

	fmt.Println("observability:")
	fmt.Printf("  enabled: %t\n", cfg.Observability.Enabled)
	fmt.Printf("  service_name: %q\n", cfg.Observability.ServiceName)
	fmt.Printf("  endpoint: %q\n", cfg.Observability.Endpoint)
	fmt.Printf("  protocol: %q\n", cfg.Observability.Protocol)
	fmt.Printf("  sample_rate: %g\n", cfg.Observability.SampleRate)
	fmt.Printf("  metric_interval: %q\n", cfg.Observability.MetricInterval.Duration())

	return nil
}
