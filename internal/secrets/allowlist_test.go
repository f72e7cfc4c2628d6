package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitleakscfg "github.com/zricethezav/gitleaks/v8/config"
)

func writeAllowlistFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAllowlist_MissingFile(t *testing.T) {
	a, err := LoadAllowlist(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Empty(t, a.Regexes)
}

func TestLoadAllowlist_Valid(t *testing.T) {
	path := writeAllowlistFile(t, "[allowlist]\nregexes = [\"DEMO_[A-Z]+\", \"fixture-token-[0-9]+\"]\n")

	a, err := LoadAllowlist(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"DEMO_[A-Z]+", "fixture-token-[0-9]+"}, a.Regexes)
}

func TestLoadAllowlist_InvalidTOML(t *testing.T) {
	path := writeAllowlistFile(t, "not [ valid toml")

	_, err := LoadAllowlist(path)

	assert.ErrorIs(t, err, ErrInvalidAllowlist)
}

func TestLoadAllowlist_InvalidRegex(t *testing.T) {
	path := writeAllowlistFile(t, "[allowlist]\nregexes = [\"[unclosed\"]\n")

	_, err := LoadAllowlist(path)

	require.ErrorIs(t, err, ErrInvalidAllowlist)
	assert.Contains(t, err.Error(), "[unclosed")
}

func TestAllowlistApply(t *testing.T) {
	cfg := &gitleakscfg.Config{}
	a := &Allowlist{Regexes: []string{"fixture-token-[0-9]+"}}

	require.NoError(t, a.apply(cfg))

	assert.Len(t, cfg.Allowlists, 1)
}

func TestAllowlistApply_Empty(t *testing.T) {
	cfg := &gitleakscfg.Config{}

	require.NoError(t, (&Allowlist{}).apply(cfg))
	assert.Empty(t, cfg.Allowlists)

	var nilAllowlist *Allowlist
	require.NoError(t, nilAllowlist.apply(cfg))
	assert.Empty(t, cfg.Allowlists)
}
