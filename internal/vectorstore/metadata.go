package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// metadataFileName is the sidecar file the embedded backend keeps next
// to its database directory. chromem persists documents but exposes no
// way to read collection-level settings back, so dimension and metric
// live here.
const metadataFileName = "collections.json"

// collectionMeta records the settings a collection was created with.
type collectionMeta struct {
	Dimension int            `json:"dimension"`
	Metric    DistanceMetric `json:"metric"`
}

type metadataFile struct {
	path string

	mu          sync.Mutex
	collections map[string]collectionMeta
}

// openMetadataFile loads the sidecar from dir, treating a missing file
// as an empty registry.
func openMetadataFile(dir string) (*metadataFile, error) {
	m := &metadataFile{
		path:        filepath.Join(dir, metadataFileName),
		collections: make(map[string]collectionMeta),
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("read collection metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m.collections); err != nil {
		return nil, fmt.Errorf("parse collection metadata %s: %w", m.path, err)
	}
	return m, nil
}

func (m *metadataFile) get(name string) (collectionMeta, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.collections[name]
	return meta, ok
}

func (m *metadataFile) put(name string, meta collectionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = meta
	return m.save()
}

func (m *metadataFile) remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return m.save()
}

// save writes the registry atomically via a temp file and rename.
// Callers must hold mu.
func (m *metadataFile) save() error {
	data, err := json.MarshalIndent(m.collections, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection metadata: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write collection metadata: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace collection metadata: %w", err)
	}
	return nil
}
