package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/kgraph/kgraph/internal/vecmath"
)

type memoryEntry struct {
	vector   []float32
	ontology string
}

// MemoryIndex is a brute-force in-memory Index, used by tests and the
// in-memory backend profile.
type MemoryIndex struct {
	mu      sync.RWMutex
	dims    int
	entries map[string]memoryEntry
}

// NewMemory builds a brute-force Index with the given vector dimension.
func NewMemory(dims int) *MemoryIndex {
	return &MemoryIndex{dims: dims, entries: make(map[string]memoryEntry)}
}

func (m *MemoryIndex) Dimensions() int { return m.dims }

func (m *MemoryIndex) Upsert(_ context.Context, id, ontology string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(vector))
	copy(cp, vector)
	m.entries[id] = memoryEntry{vector: cp, ontology: ontology}
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, ontology string, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.entries))
	for id, e := range m.entries {
		if ontology != "" && e.ontology != ontology {
			continue
		}
		matches = append(matches, Match{
			ID:         id,
			Similarity: vecmath.Cosine(vector, e.vector),
			Ontology:   e.ontology,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Close() error { return nil }
