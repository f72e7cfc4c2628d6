// Package main implements the docvector CLI for ingesting documentation
// into a vector store and searching it.
package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile overrides the default config path when set via --config
	configFile string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docvector",
	Short: "Vector storage and hybrid search for documentation",
	Long: `docvector ingests documentation into a vector store and answers
hybrid (vector + keyword) search queries against it.

Storage runs either embedded (chromem, no external services) or against
a Qdrant server, selected by the vectorstore.mode config setting.

Examples:
  # One-time setup: config file, data directories, ONNX runtime
  docvector init

  # Ingest a file into the default collection
  docvector ingest docs/guide.md

  # Search with reranking
  docvector search "connection pooling" --rerank`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default ~/.config/docvector/config.yaml)")
}

// truncate shortens s for table output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
