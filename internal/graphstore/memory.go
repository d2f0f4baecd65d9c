package graphstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

type edgeKey struct {
	from, to, relType string
}

// MemoryStore is an in-process Store, grounded on the same
// RWMutex-guarded-map approach used elsewhere in this module for in-memory
// backends, generalized from a generic (src,rel)->dst adjacency map to the
// full concept/source/instance/relationship model.
type MemoryStore struct {
	mu sync.RWMutex

	concepts      map[string]model.Concept
	sources       map[string]model.Source
	instances     map[[2]string]model.Instance // (conceptID, sourceID)
	relationships map[edgeKey]*model.Relationship
	relSeq        int64

	documents           map[string]model.Document
	documentsByHash     map[[2]string]string // (ontology, contentHash) -> documentID

	idx vectorindex.Index
}

// NewMemory builds an in-memory Store backed by idx for vector search.
func NewMemory(idx vectorindex.Index) *MemoryStore {
	return &MemoryStore{
		concepts:        make(map[string]model.Concept),
		sources:         make(map[string]model.Source),
		instances:       make(map[[2]string]model.Instance),
		relationships:   make(map[edgeKey]*model.Relationship),
		documents:       make(map[string]model.Document),
		documentsByHash: make(map[[2]string]string),
		idx:             idx,
	}
}

func (s *MemoryStore) CreateConcept(_ context.Context, c model.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts[c.ID] = c
	return nil
}

func (s *MemoryStore) GetConcept(_ context.Context, id string) (model.Concept, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concepts[id]
	return c, ok, nil
}

func (s *MemoryStore) AppendSearchTerms(_ context.Context, conceptID string, terms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.concepts[conceptID]
	if !ok {
		return apperr.NotFound("concept %s not found", conceptID)
	}
	c.SearchTerms = mergeSearchTerms(c.SearchTerms, terms)
	s.concepts[conceptID] = c
	return nil
}

// mergeSearchTerms appends terms not already present in existing, preserving
// existing order and case-insensitive de-duplication.
func mergeSearchTerms(existing, terms []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t)] = true
	}
	out := existing
	for _, t := range terms {
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func (s *MemoryStore) CreateSource(_ context.Context, src model.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = src
	return nil
}

func (s *MemoryStore) GetSource(_ context.Context, id string) (model.Source, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	return src, ok, nil
}

func (s *MemoryStore) SourcesByDocument(_ context.Context, documentID string) ([]model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Source
	for _, src := range s.sources {
		if src.DocumentID == documentID {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, d model.Document) (model.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hashKey := [2]string{d.Ontology, d.ContentHash}
	if existingID, ok := s.documentsByHash[hashKey]; ok {
		return s.documents[existingID], false, nil
	}
	s.documents[d.ID] = d
	s.documentsByHash[hashKey] = d.ID
	return d, true, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (model.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	return d, ok, nil
}

func (s *MemoryStore) GetDocumentByContentHash(_ context.Context, ontology, contentHash string) (model.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.documentsByHash[[2]string{ontology, contentHash}]
	if !ok {
		return model.Document{}, false, nil
	}
	d, ok := s.documents[id]
	return d, ok, nil
}

func (s *MemoryStore) RetagOntology(_ context.Context, oldOntology, newOntology string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.concepts {
		if c.Ontology == oldOntology {
			c.Ontology = newOntology
			s.concepts[id] = c
		}
	}
	for id, src := range s.sources {
		if src.Ontology == oldOntology {
			src.Ontology = newOntology
			s.sources[id] = src
		}
	}
	for id, d := range s.documents {
		if d.Ontology == oldOntology {
			delete(s.documentsByHash, [2]string{oldOntology, d.ContentHash})
			d.Ontology = newOntology
			s.documents[id] = d
			s.documentsByHash[[2]string{newOntology, d.ContentHash}] = id
		}
	}
	return nil
}

func (s *MemoryStore) ListOntologies(_ context.Context) ([]model.Ontology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]time.Time)
	note := func(name string, at time.Time) {
		if existing, ok := seen[name]; !ok || at.Before(existing) {
			seen[name] = at
		}
	}
	for _, c := range s.concepts {
		note(c.Ontology, c.CreatedAt)
	}
	for _, d := range s.documents {
		note(d.Ontology, d.IngestedAt)
	}

	out := make([]model.Ontology, 0, len(seen))
	for name, at := range seen {
		out = append(out, model.Ontology{Name: name, CreatedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DocumentsByOntology(_ context.Context, ontology string) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Document
	for _, d := range s.documents {
		if d.Ontology == ontology {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngestedAt.Before(out[j].IngestedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteOntology(ctx context.Context, ontology string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool)
	for id, c := range s.concepts {
		if c.Ontology == ontology {
			removed[id] = true
			delete(s.concepts, id)
			_ = s.idx.Delete(ctx, id)
		}
	}
	for id, src := range s.sources {
		if src.Ontology == ontology {
			delete(s.sources, id)
			for key := range s.instances {
				if key[1] == id {
					delete(s.instances, key)
				}
			}
		}
	}
	for id, d := range s.documents {
		if d.Ontology == ontology {
			delete(s.documents, id)
			delete(s.documentsByHash, [2]string{ontology, d.ContentHash})
		}
	}
	for key, r := range s.relationships {
		if removed[r.FromID] || removed[r.ToID] {
			delete(s.relationships, key)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil
	}
	delete(s.documents, id)
	delete(s.documentsByHash, [2]string{d.Ontology, d.ContentHash})
	for srcID, src := range s.sources {
		if src.DocumentID != id {
			continue
		}
		delete(s.sources, srcID)
		for key := range s.instances {
			if key[1] == srcID {
				delete(s.instances, key)
			}
		}
	}
	return nil
}

func (s *MemoryStore) CreateInstance(_ context.Context, inst model.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{inst.ConceptID, inst.SourceID}
	if _, exists := s.instances[key]; exists {
		return nil // idempotent: same (concept, source) pair, spec §4.7
	}
	s.instances[key] = inst
	return nil
}

func (s *MemoryStore) UpsertRelationship(_ context.Context, fromID, toID, relType string, confidence float64, evidenceSourceID string) (model.Relationship, error) {
	if err := validateEvidence(evidenceSourceID); err != nil {
		return model.Relationship{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{from: fromID, to: toID, relType: relType}
	if r, ok := s.relationships[key]; ok {
		if !containsString(r.Evidence, evidenceSourceID) {
			r.Evidence = append(r.Evidence, evidenceSourceID)
		}
		if confidence > r.Confidence {
			r.Confidence = confidence
		}
		return *r, nil
	}

	s.relSeq++
	r := &model.Relationship{
		ID:         relationshipID(s.relSeq),
		FromID:     fromID,
		ToID:       toID,
		Type:       relType,
		Confidence: confidence,
		Evidence:   []string{evidenceSourceID},
		CreatedAt:  time.Now(),
	}
	s.relationships[key] = r
	return *r, nil
}

func (s *MemoryStore) RetypeEdges(_ context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, r := range s.relationships {
		if key.relType != from {
			continue
		}
		delete(s.relationships, key)
		r.Type = to
		newKey := edgeKey{from: key.from, to: key.to, relType: to}
		if existing, ok := s.relationships[newKey]; ok {
			for _, ev := range r.Evidence {
				if !containsString(existing.Evidence, ev) {
					existing.Evidence = append(existing.Evidence, ev)
				}
			}
			if r.Confidence > existing.Confidence {
				existing.Confidence = r.Confidence
			}
		} else {
			s.relationships[newKey] = r
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) EdgesByType(_ context.Context, relType string) ([]model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Relationship
	for key, r := range s.relationships {
		if key.relType != relType {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *MemoryStore) Neighbors(_ context.Context, conceptIDs []string, edgeTypeFilter []string, direction Direction) (map[string][]NeighborEdge, error) {
	if err := validateNeighborBatch(conceptIDs); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		want[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]NeighborEdge, len(conceptIDs))
	for _, r := range s.relationships {
		if !edgeTypeAllowed(edgeTypeFilter, r.Type) {
			continue
		}
		if want[r.FromID] && directionMatches(direction, true) {
			out[r.FromID] = append(out[r.FromID], NeighborEdge{OtherConceptID: r.ToID, Type: r.Type, Confidence: r.Confidence, EvidenceCount: len(r.Evidence), Outgoing: true})
		}
		if want[r.ToID] && directionMatches(direction, false) {
			out[r.ToID] = append(out[r.ToID], NeighborEdge{OtherConceptID: r.FromID, Type: r.Type, Confidence: r.Confidence, EvidenceCount: len(r.Evidence), Outgoing: false})
		}
	}
	return out, nil
}

func (s *MemoryStore) VectorSearch(ctx context.Context, embedding []float32, ontology string, topK int, threshold float64) ([]SearchHit, error) {
	matches, err := s.idx.Search(ctx, embedding, ontology, topK)
	if err != nil {
		return nil, err
	}
	return hydrateSearch(ctx, s, matches, threshold)
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		ConceptCount:      int64(len(s.concepts)),
		RelationshipCount: int64(len(s.relationships)),
		SourceCount:       int64(len(s.sources)),
	}, nil
}

func containsString(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

func relationshipID(seq int64) string {
	return "rel_" + strconv.FormatInt(seq, 10)
}
