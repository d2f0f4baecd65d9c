package jobqueue

import (
	"context"
	"sync"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
)

// MemoryStore is an in-process Store for tests and single-node deployments
// without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]model.Job)}
}

func (s *MemoryStore) Create(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok, nil
}

func (s *MemoryStore) Update(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return apperr.NotFound("job %s not found", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status model.JobStatus) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Job
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, ownerFilter, ontologyFilter string) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Job
	for _, j := range s.jobs {
		if ownerFilter != "" && j.Owner != ownerFilter {
			continue
		}
		if ontologyFilter != "" && j.Ontology != ontologyFilter {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}
