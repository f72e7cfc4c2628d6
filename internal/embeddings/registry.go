package embeddings

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// registeredModels maps supported model names to their output dimensions.
var registeredModels = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"BAAI/bge-small-en-v1.5":                  384,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"BAAI/bge-base-en-v1.5":                   768,
	"thenlper/gte-base":                       768,
	"BAAI/bge-large-en-v1.5":                  1024,
	"text-embedding-3-small":                  1536,
	"text-embedding-3-large":                  3072,
	"text-embedding-ada-002":                  1536,
}

// RegisteredModels returns the names of all registered models, sorted.
func RegisteredModels() []string {
	names := make([]string, 0, len(registeredModels))
	for name := range registeredModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelDimension returns the embedding dimension for model. Registered
// models return their known dimension; unknown models fall back to a
// guess based on common naming conventions.
func ModelDimension(model string) int {
	if dim, ok := registeredModels[model]; ok {
		return dim
	}
	return dimensionFromName(model)
}

// dimensionFromName guesses a dimension from the model name. Embedding
// families follow a loose convention: base variants are 768-dimensional,
// large variants 1024, small and mini variants 384.
func dimensionFromName(model string) int {
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "base"):
		return 768
	case strings.Contains(name, "large"):
		return 1024
	case strings.Contains(name, "small"), strings.Contains(name, "mini"):
		return 384
	default:
		return 384
	}
}

// ValidateModel reports whether model is usable. Registered models and
// OpenAI-style text-embedding-* names validate silently. Custom models
// in HuggingFace org/name form validate with a warning that the
// dimension is guessed from the name. Anything else is rejected.
func ValidateModel(model string) (string, error) {
	if model == "" {
		return "", fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if _, ok := registeredModels[model]; ok {
		return "", nil
	}
	if strings.HasPrefix(model, "text-embedding-") {
		return "", nil
	}
	if parts := strings.Split(model, "/"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return fmt.Sprintf("using custom model %q; dimension %d guessed from the name", model, dimensionFromName(model)), nil
	}
	return "", fmt.Errorf("%w: unknown model %q (use a registered model or HuggingFace org/model-name form)", ErrInvalidConfig, model)
}
