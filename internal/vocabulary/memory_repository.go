package vocabulary

import (
	"context"
	"sync"

	"github.com/kgraph/kgraph/internal/model"
)

// MemoryRepository is an in-process Repository, used in tests and
// single-node deployments that don't need vocabulary state to survive a
// restart, mirroring the RWMutex-guarded-map pattern used throughout the
// storage layer (graphstore.MemoryStore, jobqueue.MemoryStore).
type MemoryRepository struct {
	mu      sync.RWMutex
	types   map[string]model.VocabularyType
	history map[string][]model.VocabularyHistoryEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		types:   make(map[string]model.VocabularyType),
		history: make(map[string][]model.VocabularyHistoryEntry),
	}
}

func (r *MemoryRepository) LoadAll(_ context.Context) ([]model.VocabularyType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.VocabularyType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, t model.VocabularyType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = t
	return nil
}

func (r *MemoryRepository) AppendHistory(_ context.Context, e model.VocabularyHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[e.TypeName] = append(r.history[e.TypeName], e)
	return nil
}

func (r *MemoryRepository) History(_ context.Context, typeName string) ([]model.VocabularyHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.VocabularyHistoryEntry, len(r.history[typeName]))
	copy(out, r.history[typeName])
	return out, nil
}
