package secrets

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	gitleakscfg "github.com/zricethezav/gitleaks/v8/config"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// ErrInvalidAllowlist indicates an allowlist file could not be parsed or
// contains an invalid pattern.
var ErrInvalidAllowlist = errors.New("invalid allowlist")

// Allowlist lists content regex patterns excluded from secret detection.
// Patterns are matched against the detected secret value.
type Allowlist struct {
	Regexes []string
}

// LoadAllowlist reads a TOML allowlist file of the form:
//
//	[allowlist]
//	regexes = ["DEMO_KEY_[A-Z0-9]+"]
//
// A missing file yields an empty allowlist; a present but malformed file
// is an error.
func LoadAllowlist(path string) (*Allowlist, error) {
	var doc struct {
		Allowlist struct {
			Regexes []string `toml:"regexes"`
		} `toml:"allowlist"`
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("reading allowlist %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAllowlist, path, err)
	}

	for _, pattern := range doc.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: pattern %q in %s: %v", ErrInvalidAllowlist, pattern, path, err)
		}
	}

	return &Allowlist{Regexes: doc.Allowlist.Regexes}, nil
}

// apply merges the patterns into the gitleaks detector configuration as
// a global allowlist entry.
func (a *Allowlist) apply(cfg *gitleakscfg.Config) error {
	if a == nil || len(a.Regexes) == 0 {
		return nil
	}

	merged := &gitleakscfg.Allowlist{
		Description: "docvector ingest allowlist",
	}
	for _, pattern := range a.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: pattern %q: %v", ErrInvalidAllowlist, pattern, err)
		}
		merged.Regexes = append(merged.Regexes, (*gitleaksregexp.Regexp)(re))
	}

	cfg.Allowlists = append(cfg.Allowlists, merged)
	return nil
}
