package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/search"
)

var (
	// search command flags
	searchLimit     int
	searchThreshold float64
	searchMode      string
	searchRerank    bool
	searchMaxTokens int
	searchFilters   []string
	searchColl      string
	searchJSON      bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Minimum vector score in [0,1] (default: configured min_score)")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(search.ModeHybrid), "Search mode: hybrid or vector")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "Rerank results using stored quality signals (default: configured use_reranking)")
	searchCmd.Flags().IntVar(&searchMaxTokens, "max-tokens", 0, "Cumulative token budget over returned content (default: configured max_tokens)")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "Payload filter as key=value (repeatable; key \"topics\" matches topic lists)")
	searchCmd.Flags().StringVar(&searchColl, "collection", "", "Collection to search (default: configured collection)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output results as JSON")
}

// searchCmd answers hybrid search queries
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search ingested documentation",
	Long: `Search ingested documentation with hybrid retrieval: vector
similarity fused with keyword overlap, optional quality-signal
reranking, and an optional token budget over the returned content.

Examples:
  # Hybrid search (default)
  docvector search "connection pooling"

  # Vector similarity only
  docvector search "connection pooling" --mode vector

  # Rerank and fit results into a 2000-token context budget
  docvector search "retry backoff" --rerank --max-tokens 2000

  # Restrict by payload fields
  docvector search "auth flow" --filter access_level=public --filter topics=oauth

  # Machine-readable output
  docvector search "tls setup" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	collection := searchColl
	if collection == "" {
		collection = app.cfg.VectorStore.Collection
	}

	engine, err := search.NewEngine(search.EngineConfig{
		Store:         app.store,
		Provider:      app.provider,
		Collection:    collection,
		VectorWeight:  app.cfg.Search.VectorWeight,
		KeywordWeight: app.cfg.Search.KeywordWeight,
		Logger:        app.logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	opts, err := searchOptions(cmd, app.cfg.Search)
	if err != nil {
		return err
	}

	results, err := engine.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(results)
	}

	printResults(results)
	return nil
}

// searchOptions merges flags with the configured search defaults;
// explicitly set flags win.
func searchOptions(cmd *cobra.Command, cfg config.SearchConfig) (search.Options, error) {
	opts := search.Options{
		Limit:        searchLimit,
		Mode:         search.Mode(searchMode),
		UseReranking: cfg.UseReranking,
		MaxTokens:    cfg.MaxTokens,
	}
	if cmd.Flags().Changed("rerank") {
		opts.UseReranking = searchRerank
	}
	if cmd.Flags().Changed("max-tokens") {
		opts.MaxTokens = searchMaxTokens
	}

	threshold := float32(cfg.MinScore)
	if cmd.Flags().Changed("threshold") {
		threshold = float32(searchThreshold)
	}
	if threshold > 0 {
		opts.ScoreThreshold = &threshold
	}

	if len(searchFilters) > 0 {
		filters, err := parseFilters(searchFilters)
		if err != nil {
			return search.Options{}, err
		}
		opts.Filters = filters
	}

	return opts, nil
}

// parseFilters turns repeated key=value flags into a payload filter map.
func parseFilters(pairs []string) (map[string]any, error) {
	filters := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", pair)
		}
		filters[key] = value
	}
	return filters, nil
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	for i, res := range results {
		title := res.Title
		if title == "" {
			title = res.ID
		}
		fmt.Printf("%d. %s (score %.3f)\n", i+1, title, res.Score)
		if res.URL != "" {
			fmt.Printf("   %s\n", res.URL)
		}
		fmt.Printf("   vector %.3f  keyword %.3f\n", res.VectorScore, res.KeywordScore)
		if s := snippet(res.Content, 200); s != "" {
			fmt.Printf("   %s\n", s)
		}
		fmt.Println()
	}
}

// snippet flattens content onto one line and truncates it for display.
func snippet(content string, maxLen int) string {
	return truncate(strings.Join(strings.Fields(content), " "), maxLen)
}
