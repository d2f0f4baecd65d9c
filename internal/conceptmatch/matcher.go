// Package conceptmatch implements match_or_create (spec §4.5): resolve a
// candidate concept to an existing one within its ontology by embedding
// similarity, or create it deterministically if nothing matches closely
// enough.
package conceptmatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

// Candidate is the extractor-emitted concept to resolve.
type Candidate struct {
	Label       string
	Description string
	SearchTerms []string
}

func (c Candidate) embeddingText() string {
	parts := []string{c.Label}
	if c.Description != "" {
		parts = append(parts, c.Description)
	}
	parts = append(parts, c.SearchTerms...)
	return strings.Join(parts, " | ")
}

// Store is the subset of the Graph Store Facade the matcher needs to
// create a new concept or enrich a reused one. Lookups go through the
// Index, not the store.
type Store interface {
	CreateConcept(ctx context.Context, c model.Concept) error
	AppendSearchTerms(ctx context.Context, conceptID string, terms []string) error
}

// Matcher implements match_or_create.
type Matcher struct {
	emb   embedclient.Client
	idx   vectorindex.Index
	store Store
	cfg   config.ConceptMatchConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-ontology serialization (spec §4.5, §5)
}

// New builds a Matcher. threshold defaults to cfg.DefaultThreshold (spec
// default 0.80) when zero.
func New(emb embedclient.Client, idx vectorindex.Index, store Store, cfg config.ConceptMatchConfig) *Matcher {
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.80
	}
	return &Matcher{emb: emb, idx: idx, store: store, cfg: cfg, locks: make(map[string]*sync.Mutex)}
}

// Result is the outcome of a match_or_create call.
type Result struct {
	ConceptID  string
	Reused     bool
	Similarity float64 // only meaningful when Reused
}

// MatchOrCreate embeds candidate, searches ontology-scoped for the closest
// existing concept, and reuses it if similarity >= threshold; otherwise
// creates a new concept with a content-hashed id so concurrent callers
// racing on the same candidate converge on the same id (spec §4.5, §5).
func (m *Matcher) MatchOrCreate(ctx context.Context, candidate Candidate, ontology string) (Result, error) {
	vec, err := m.emb.EmbedText(ctx, candidate.embeddingText())
	if err != nil {
		return Result{}, fmt.Errorf("embed candidate: %w", err)
	}
	return m.matchOrCreateWithEmbedding(ctx, candidate, vec, ontology)
}

// MatchOrCreateWithImage resolves candidate against a precomputed image
// embedding (spec §4.3 embed_image) rather than re-deriving one from text,
// for image-as-document ingestion (spec §4.1, §1) where the only available
// signal is the image itself.
func (m *Matcher) MatchOrCreateWithImage(ctx context.Context, candidate Candidate, imageVec []float32, ontology string) (Result, error) {
	return m.matchOrCreateWithEmbedding(ctx, candidate, imageVec, ontology)
}

func (m *Matcher) matchOrCreateWithEmbedding(ctx context.Context, candidate Candidate, vec []float32, ontology string) (Result, error) {
	lock := m.ontologyLock(ontology)
	lock.Lock()
	defer lock.Unlock()

	matches, err := m.idx.Search(ctx, vec, ontology, 1)
	if err != nil {
		return Result{}, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) > 0 && matches[0].Similarity >= m.cfg.DefaultThreshold {
		// Reusing a concept still enriches it: new search terms are merged
		// in, but label/description are left alone (spec §4.5 step 3).
		if len(candidate.SearchTerms) > 0 {
			if err := m.store.AppendSearchTerms(ctx, matches[0].ID, candidate.SearchTerms); err != nil {
				return Result{}, fmt.Errorf("append search terms: %w", err)
			}
		}
		return Result{ConceptID: matches[0].ID, Reused: true, Similarity: matches[0].Similarity}, nil
	}

	id := contentHashID(ontology, candidate.Label, candidate.Description)
	concept := model.Concept{
		ID:          id,
		Label:       candidate.Label,
		Description: candidate.Description,
		SearchTerms: candidate.SearchTerms,
		Embedding:   vec,
		Ontology:    ontology,
		CreatedAt:   time.Now(),
	}
	if err := m.store.CreateConcept(ctx, concept); err != nil {
		return Result{}, fmt.Errorf("create concept: %w", err)
	}
	if err := m.idx.Upsert(ctx, id, ontology, vec); err != nil {
		return Result{}, fmt.Errorf("index concept: %w", err)
	}
	return Result{ConceptID: id, Reused: false}, nil
}

func (m *Matcher) ontologyLock(ontology string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[ontology]
	if !ok {
		l = &sync.Mutex{}
		m.locks[ontology] = l
	}
	return l
}

// contentHashID derives a deterministic concept id from its ontology and
// label/description, so two concurrent creates of the same candidate (e.g.
// in parallel ingestion mode, spec §5) are idempotent instead of racing.
func contentHashID(ontology, label, description string) string {
	h := sha256.New()
	h.Write([]byte(ontology))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(label))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(description))))
	return "concept_" + hex.EncodeToString(h.Sum(nil))[:24]
}
