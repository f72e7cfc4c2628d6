package search

import "strings"

// tokenize splits text into lowercase terms, dropping stopwords and
// tokens shorter than three characters.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !isStopword(token) && len(token) > 2 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// isWordRune returns true if the rune is alphanumeric or underscore.
func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

// isStopword returns true if the token is a common English stopword.
func isStopword(token string) bool {
	stopwords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
		"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
		"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
		"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
		"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
		"she": true, "it": true, "we": true, "they": true, "what": true, "which": true,
		"who": true, "when": true, "where": true, "why": true, "how": true,
	}
	return stopwords[token]
}

// termOverlap returns the fraction of query tokens found in the
// document tokens, in [0,1]. Duplicate query tokens count once as a
// match but still widen the denominator, so repeated terms dilute
// rather than inflate the score.
func termOverlap(queryTokens, docTokens []string) float32 {
	if len(queryTokens) == 0 {
		return 0.0
	}

	docTokenSet := make(map[string]bool, len(docTokens))
	for _, token := range docTokens {
		docTokenSet[token] = true
	}

	matchCount := 0
	counted := make(map[string]bool, len(queryTokens))
	for _, queryToken := range queryTokens {
		if docTokenSet[queryToken] && !counted[queryToken] {
			matchCount++
			counted[queryToken] = true
		}
	}

	return float32(matchCount) / float32(len(queryTokens))
}
