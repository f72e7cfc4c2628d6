// Package secrets detects and redacts credentials in document content
// before it is embedded and stored.
//
// Detection runs the gitleaks default ruleset. Matches are replaced with
// [REDACTED:rule-id:preview] markers that keep the surrounding text
// meaningful for embedding while hiding the value. Rule IDs and counts
// are preserved for logging; secret values never leave the package.
package secrets
