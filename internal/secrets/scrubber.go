package secrets

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/fyrsmithlabs/docvector/internal/config"
)

// previewLen is how many leading characters of a secret survive in the
// redaction marker.
const previewLen = 4

// Scrubber redacts credentials from content.
type Scrubber interface {
	// Scrub returns the content with detected secrets replaced by
	// redaction markers, plus match metadata.
	Scrub(content string) *Result

	// IsEnabled reports whether scrubbing is active.
	IsEnabled() bool
}

// NewScrubber builds a Scrubber from the ingest configuration. When
// scrubbing is disabled a no-op implementation is returned.
func NewScrubber(cfg config.IngestConfig) (Scrubber, error) {
	if !cfg.ScrubSecrets {
		return &NoopScrubber{}, nil
	}

	var allowlist *Allowlist
	if cfg.ScrubAllowlist != "" {
		path, err := config.ExpandPath(cfg.ScrubAllowlist)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAllowlist, err)
		}
		allowlist, err = LoadAllowlist(path)
		if err != nil {
			return nil, err
		}
	}

	return NewGitleaksScrubber(allowlist)
}

// GitleaksScrubber detects secrets with the gitleaks default ruleset.
// The detector is built once at construction; rule parsing is too
// expensive to repeat per document.
type GitleaksScrubber struct {
	detector *detect.Detector

	// gitleaks does not document DetectString as safe for concurrent use.
	mu sync.Mutex
}

// NewGitleaksScrubber returns a scrubber using the stock gitleaks rules.
// A nil allowlist scans without exclusions.
func NewGitleaksScrubber(allowlist *Allowlist) (*GitleaksScrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("initializing gitleaks detector: %w", err)
	}

	if err := allowlist.apply(&detector.Config); err != nil {
		return nil, err
	}

	return &GitleaksScrubber{detector: detector}, nil
}

// Scrub detects secrets and replaces every occurrence of each detected
// value with a [REDACTED:rule-id:preview] marker. Replacement is by
// value rather than by reported position, so multi-line secrets and
// repeated occurrences are covered.
func (s *GitleaksScrubber) Scrub(content string) *Result {
	start := time.Now()
	result := &Result{
		Scrubbed: content,
		ByRule:   make(map[string]int),
	}
	if content == "" {
		result.Duration = time.Since(start)
		return result
	}

	s.mu.Lock()
	findings := s.detector.DetectString(content)
	s.mu.Unlock()

	if len(findings) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	// Longer secrets first so a value nested inside another match cannot
	// leave fragments behind.
	sort.SliceStable(findings, func(i, j int) bool {
		return len(findings[i].Secret) > len(findings[j].Secret)
	})

	scrubbed := content
	replaced := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		if f.Secret == "" {
			continue
		}

		result.Findings = append(result.Findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
			Preview:     preview(f.Secret),
			Length:      len(f.Secret),
		})
		result.ByRule[f.RuleID]++

		if _, done := replaced[f.Secret]; done {
			continue
		}
		marker := fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Secret))
		scrubbed = strings.ReplaceAll(scrubbed, f.Secret, marker)
		replaced[f.Secret] = struct{}{}
	}

	result.Scrubbed = scrubbed
	result.Duration = time.Since(start)
	return result
}

// IsEnabled reports true; a constructed GitleaksScrubber always scans.
func (s *GitleaksScrubber) IsEnabled() bool { return true }

func preview(secret string) string {
	if len(secret) <= previewLen {
		return secret
	}
	return secret[:previewLen]
}

// NoopScrubber passes content through untouched.
type NoopScrubber struct{}

// Scrub returns the content unchanged with no findings.
func (n *NoopScrubber) Scrub(content string) *Result {
	return &Result{Scrubbed: content, ByRule: make(map[string]int)}
}

// IsEnabled reports false.
func (n *NoopScrubber) IsEnabled() bool { return false }

var (
	_ Scrubber = (*GitleaksScrubber)(nil)
	_ Scrubber = (*NoopScrubber)(nil)
)
