package vectorstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// manifestEntry mirrors one stored document so metadata can be enumerated
// without touching the vector index.
type manifestEntry struct {
	Content  string
	Metadata map[string]string
}

// manifest is a sidecar record of every document in the store, keyed by
// collection and document ID. chromem-go exposes no metadata scan, so the
// manifest backs Get, filtered Delete, and result-count capping for Query.
// It persists as a gob file next to the vector data.
type manifest struct {
	mu   sync.RWMutex
	path string
	data map[string]map[string]manifestEntry
}

func loadManifest(path string) (*manifest, error) {
	m := &manifest{
		path: path,
		data: make(map[string]map[string]manifestEntry),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&m.data); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return m, nil
}

// save writes the manifest atomically via a temp file and rename.
func (m *manifest) save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating manifest temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(m.data); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), m.path)
}

func (m *manifest) put(collection, id string, entry manifestEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string]manifestEntry)
		m.data[collection] = coll
	}
	coll[id] = entry
}

func (m *manifest) remove(collection string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.data[collection]
	if !ok {
		return
	}
	for _, id := range ids {
		delete(coll, id)
	}
}

// get returns all documents in a collection whose metadata contains every
// pair in where, ordered by ID.
func (m *manifest) get(collection string, where map[string]string) *GetResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := &GetResult{}
	coll := m.data[collection]

	ids := make([]string, 0, len(coll))
	for id, entry := range coll {
		if matchesWhere(entry.Metadata, where) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := coll[id]
		result.IDs = append(result.IDs, id)
		result.Documents = append(result.Documents, entry.Content)
		result.Metadatas = append(result.Metadatas, cloneMetadata(entry.Metadata))
	}
	return result
}

// countMatching returns how many documents in a collection satisfy where.
func (m *manifest) countMatching(collection string, where map[string]string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, entry := range m.data[collection] {
		if matchesWhere(entry.Metadata, where) {
			n++
		}
	}
	return n
}

func (m *manifest) count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[collection])
}

func matchesWhere(metadata, where map[string]string) bool {
	for k, v := range where {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cloneMetadata(metadata map[string]string) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
