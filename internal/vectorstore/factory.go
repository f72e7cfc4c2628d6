package vectorstore

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/docvector/internal/config"
	"github.com/fyrsmithlabs/docvector/internal/logging"
)

// Option customizes store construction.
type Option func(*factoryOptions)

type factoryOptions struct {
	mode string
}

// WithMode overrides the configured backend mode. An empty mode keeps
// the configured one.
func WithMode(mode string) Option {
	return func(o *factoryOptions) { o.mode = mode }
}

// NewStore selects and constructs exactly one backend from the
// configuration:
//
//   - local: embedded store persisted under the configured path
//   - networked: Qdrant server over gRPC
//   - hybrid: Qdrant, with the same credential rules as networked
//
// The returned store is uninitialized; nothing is dialed and no files
// are opened here beyond a writability probe for local mode. Call
// Initialize before use. Configuration problems, including the
// URL/API-key pairing rules for managed endpoints, fail here so they
// surface before any request is attempted.
func NewStore(cfg config.VectorStoreConfig, logger *logging.Logger, opts ...Option) (Store, error) {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	mode := cfg.Mode
	if o.mode != "" {
		mode = o.mode
	}
	if mode == "" {
		mode = config.ModeLocal
	}

	switch mode {
	case config.ModeLocal:
		return newLocalStore(cfg, logger)
	case config.ModeNetworked, config.ModeHybrid:
		return newNetworkedStore(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown vectorstore mode %q (valid modes: %s, %s, %s)",
			ErrInvalidConfig, mode, config.ModeLocal, config.ModeNetworked, config.ModeHybrid)
	}
}

func newLocalStore(cfg config.VectorStoreConfig, logger *logging.Logger) (Store, error) {
	ccfg := ChromemConfig{Path: cfg.Path, Compress: cfg.Compress}
	ccfg.ApplyDefaults()

	expanded, err := config.ExpandPath(ccfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: expand persistence path: %w", ErrInvalidConfig, err)
	}
	if err := checkWritable(expanded); err != nil {
		return nil, fmt.Errorf("%w: persistence path %q is not writable: %v", ErrInvalidConfig, expanded, err)
	}

	return NewChromemStore(ccfg, logger)
}

func newNetworkedStore(cfg config.VectorStoreConfig, logger *logging.Logger) (Store, error) {
	if cfg.URL != "" && !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: vectorstore URL provided but API key missing; managed Qdrant endpoints require an API key",
			ErrInvalidConfig)
	}
	if cfg.APIKey.IsSet() && cfg.URL == "" {
		return nil, fmt.Errorf("%w: vectorstore API key provided but URL missing; set vectorstore.url or clear the API key",
			ErrInvalidConfig)
	}

	qcfg := QdrantConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		APIKey:            cfg.APIKey.Value(),
		UseTLS:            cfg.UseTLS,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff.Duration(),
		HNSWM:             cfg.HNSWM,
		HNSWEfConstruct:   cfg.HNSWEfConstruct,
		IndexingThreshold: cfg.IndexingThreshold,
	}

	if cfg.URL != "" {
		host, port, useTLS, err := parseEndpoint(cfg.URL)
		if err != nil {
			return nil, err
		}
		qcfg.Host = host
		qcfg.Port = port
		qcfg.UseTLS = useTLS || cfg.UseTLS
	}

	return NewQdrantStore(qcfg, logger)
}

// parseEndpoint splits a Qdrant URL into host, gRPC port, and TLS. An
// https scheme implies TLS; a missing scheme is treated as https since
// URLs are only used for managed endpoints. A missing port defaults to
// the gRPC port 6334.
func parseEndpoint(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: parse vectorstore URL: %v", ErrInvalidConfig, err)
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("%w: vectorstore URL %q has no host", ErrInvalidConfig, raw)
	}

	port = 6334
	if p := u.Port(); p != "" {
		n, perr := strconv.Atoi(p)
		if perr != nil || n < 1 || n > 65535 {
			return "", 0, false, fmt.Errorf("%w: vectorstore URL port %q out of range", ErrInvalidConfig, p)
		}
		port = n
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

// checkWritable verifies that path, or its nearest existing ancestor,
// accepts writes. Misconfigured persistence paths fail at construction
// instead of at first write.
func checkWritable(path string) error {
	dir := path
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("no existing ancestor directory for %s", path)
		}
		dir = parent
	}

	probe, err := os.CreateTemp(dir, ".docvector-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
