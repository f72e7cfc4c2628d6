package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/config"
)

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd prepares a machine for first use
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docvector configuration and dependencies",
	Long: `Initialize docvector for first use.

Creates the config directory with a commented default config file, the
data directories for the embedded vector store, model cache, and
ingestion ledger, and downloads the ONNX runtime required for local
embeddings with FastEmbed:
  ~/.config/docvector/config.yaml
  ~/.config/docvector/vectorstore/
  ~/.config/docvector/models/
  ~/.config/docvector/ledger/
  ~/.config/docvector/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Initialize docvector
  docvector init

  # Force re-download of the ONNX runtime
  docvector init --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	path, created, err := writeDefaultConfig()
	if err != nil {
		return err
	}
	if created {
		cmd.Printf("Created default config at: %s\n", path)
	} else {
		cmd.Printf("Config already exists at: %s\n", path)
	}

	cfg, err := config.LoadWithFile(configFile)
	if err != nil {
		return err
	}
	for _, dir := range []string{
		cfg.VectorStore.Path,
		cfg.Embeddings.CacheDir,
		cfg.Ingest.LedgerPath,
	} {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(expanded, 0o700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", expanded, err)
		}
		cmd.Printf("Created directory: %s\n", expanded)
	}

	return installONNXRuntime(cmd, initForce)
}

// writeDefaultConfig writes the commented default config file unless one
// already exists. Returns the path and whether a new file was written.
func writeDefaultConfig() (string, bool, error) {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "docvector", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	// 0600: the loader rejects world-readable config files.
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o600); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

const defaultConfigYAML = `# docvector configuration.
# Values shown are the defaults; uncomment to override.
# Every setting can also be set via environment variables, e.g.
# VECTORSTORE_MODE=networked or SEARCH_VECTOR_WEIGHT=0.8.

vectorstore:
  # local (embedded), networked (Qdrant over gRPC), or hybrid.
  mode: local
  collection: documents
  # path: ~/.config/docvector/vectorstore
  # compress: false

  # Networked mode (self-hosted):
  # host: localhost
  # port: 6334

  # Networked mode (managed endpoint; both are required together):
  # url: ""
  # api_key: ""

embeddings:
  # fastembed (local ONNX) or openai (any OpenAI-compatible API).
  provider: fastembed
  model: sentence-transformers/all-MiniLM-L6-v2
  # base_url: ""
  # api_key: ""
  # batch_size: 32
  # rate_limit: 0
  # cache_enabled: true
  # cache_backend: memory   # memory (LRU) or badger (persistent)

ingest:
  # chunk_size: 1000
  # chunk_overlap: 200
  # workers: 0              # 0 = half the CPU count
  # scrub_secrets: true
  # access_level: public

search:
  # vector_weight: 0.7
  # keyword_weight: 0.3
  # min_score: 0.1
  # use_reranking: true
  # max_tokens: 0           # 0 = no token budget

logging:
  # level: info
  # format: json

observability:
  # enabled: false
  # endpoint: localhost:4317
`
