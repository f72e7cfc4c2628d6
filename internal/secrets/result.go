package secrets

import (
	"sort"
	"time"
)

// Result contains the outcome of one scrub call.
type Result struct {
	// Scrubbed is the content with secrets replaced by redaction markers.
	Scrubbed string

	// Findings describes each detected secret without its value.
	Findings []Finding

	// ByRule maps rule IDs to finding counts.
	ByRule map[string]int

	// Duration is how long detection and redaction took.
	Duration time.Duration
}

// Finding records one detected secret. The value itself is never stored,
// only a short preview and its length.
type Finding struct {
	// RuleID identifies the matching gitleaks rule, e.g. "aws-access-token".
	RuleID string

	// Description is the rule's human-readable description.
	Description string

	// Line is the line number reported by the detector.
	Line int

	// Preview holds the first few characters of the secret.
	Preview string

	// Length is the length of the redacted secret.
	Length int
}

// HasFindings reports whether any secrets were detected.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the matched rule IDs, sorted for stable log output.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
