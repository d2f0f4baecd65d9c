package conceptmatch

import (
	"context"
	"sync"
	"testing"

	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

type fakeStore struct {
	mu       sync.Mutex
	created  []model.Concept
	createFn func(c model.Concept) error
	appended map[string][]string
}

func (s *fakeStore) CreateConcept(_ context.Context, c model.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createFn != nil {
		if err := s.createFn(c); err != nil {
			return err
		}
	}
	s.created = append(s.created, c)
	return nil
}

func (s *fakeStore) AppendSearchTerms(_ context.Context, conceptID string, terms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appended == nil {
		s.appended = make(map[string][]string)
	}
	s.appended[conceptID] = append(s.appended[conceptID], terms...)
	return nil
}

func newMatcher(threshold float64) (*Matcher, *fakeStore, *vectorindex.MemoryIndex) {
	emb := embedclient.NewDeterministic(8)
	idx := vectorindex.NewMemory(8)
	store := &fakeStore{}
	cfg := config.ConceptMatchConfig{DefaultThreshold: threshold}
	return New(emb, idx, store, cfg), store, idx
}

func TestMatchOrCreate_CreatesWhenNoMatch(t *testing.T) {
	m, store, _ := newMatcher(0.80)
	ctx := context.Background()

	res, err := m.MatchOrCreate(ctx, Candidate{Label: "Entropy"}, "physics")
	if err != nil {
		t.Fatalf("MatchOrCreate: %v", err)
	}
	if res.Reused {
		t.Fatal("expected a creation, got reused=true")
	}
	if len(store.created) != 1 || store.created[0].ID != res.ConceptID {
		t.Fatalf("store.created = %+v", store.created)
	}
}

func TestMatchOrCreate_ReusesExactDuplicate(t *testing.T) {
	m, store, _ := newMatcher(0.80)
	ctx := context.Background()

	first, err := m.MatchOrCreate(ctx, Candidate{Label: "Entropy", Description: "disorder measure"}, "physics")
	if err != nil {
		t.Fatalf("first MatchOrCreate: %v", err)
	}

	second, err := m.MatchOrCreate(ctx, Candidate{Label: "Entropy", Description: "disorder measure"}, "physics")
	if err != nil {
		t.Fatalf("second MatchOrCreate: %v", err)
	}
	if !second.Reused || second.ConceptID != first.ConceptID {
		t.Fatalf("second call: reused=%v id=%q, want reused=true id=%q", second.Reused, second.ConceptID, first.ConceptID)
	}
	if len(store.created) != 1 {
		t.Fatalf("store.created has %d entries, want 1 (no duplicate creation)", len(store.created))
	}
}

func TestMatchOrCreate_ReuseAppendsSearchTerms(t *testing.T) {
	m, store, _ := newMatcher(0.80)
	ctx := context.Background()

	first, err := m.MatchOrCreate(ctx, Candidate{Label: "Entropy", Description: "disorder measure"}, "physics")
	if err != nil {
		t.Fatalf("first MatchOrCreate: %v", err)
	}

	second, err := m.MatchOrCreate(ctx, Candidate{
		Label: "Entropy", Description: "disorder measure", SearchTerms: []string{"thermodynamic entropy"},
	}, "physics")
	if err != nil {
		t.Fatalf("second MatchOrCreate: %v", err)
	}
	if !second.Reused {
		t.Fatalf("second call: reused=%v, want true", second.Reused)
	}
	if got := store.appended[first.ConceptID]; len(got) != 1 || got[0] != "thermodynamic entropy" {
		t.Fatalf("appended search terms for %s = %v, want [thermodynamic entropy]", first.ConceptID, got)
	}
	if store.created[0].Description != "disorder measure" {
		t.Fatalf("original concept description mutated: %q", store.created[0].Description)
	}
}

func TestMatchOrCreate_ScopedByOntology(t *testing.T) {
	m, store, _ := newMatcher(0.80)
	ctx := context.Background()

	_, err := m.MatchOrCreate(ctx, Candidate{Label: "Entropy"}, "physics")
	if err != nil {
		t.Fatalf("MatchOrCreate: %v", err)
	}
	_, err = m.MatchOrCreate(ctx, Candidate{Label: "Entropy"}, "biology")
	if err != nil {
		t.Fatalf("MatchOrCreate (other ontology): %v", err)
	}
	if len(store.created) != 2 {
		t.Fatalf("store.created = %d, want 2 (ontology scoping should prevent cross-ontology reuse)", len(store.created))
	}
}

func TestContentHashID_Deterministic(t *testing.T) {
	a := contentHashID("physics", "Entropy", "disorder")
	b := contentHashID("physics", "entropy", " Disorder ")
	if a != b {
		t.Fatalf("contentHashID should be case/whitespace-insensitive: %q != %q", a, b)
	}
	c := contentHashID("biology", "Entropy", "disorder")
	if a == c {
		t.Fatal("contentHashID should differ across ontologies")
	}
}
