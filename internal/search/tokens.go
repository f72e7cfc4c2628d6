package search

import (
	"github.com/tmc/langchaingo/llms"
)

// estimatedCharsPerToken drives the fallback token estimate. Four
// characters per token tracks English prose closely enough for budget
// trimming.
const estimatedCharsPerToken = 4

// TokenCounter counts tokens for budget enforcement. With a model name
// configured it uses that model's tokenizer; otherwise it estimates
// from character length.
type TokenCounter struct {
	model string
}

// NewTokenCounter builds a counter. An empty model selects the
// character-length estimate.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count returns the token count for text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.model != "" {
		return llms.CountTokens(c.model, text)
	}
	return (len(text) + estimatedCharsPerToken - 1) / estimatedCharsPerToken
}

// limitToTokenBudget keeps the leading results whose cumulative content
// token count fits within maxTokens, preserving rank order. The first
// result that would overflow the budget ends the scan.
func limitToTokenBudget(results []Result, maxTokens int, counter *TokenCounter) []Result {
	if maxTokens <= 0 {
		return results
	}

	used := 0
	for i, result := range results {
		tokens := counter.Count(result.Content)
		if used+tokens > maxTokens {
			return results[:i]
		}
		used += tokens
	}
	return results
}
