package queryengine

import (
	"context"
	"testing"

	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

func TestSearch_QueryWithoutGroundingLeavesItNil(t *testing.T) {
	idx := vectorindex.NewMemory(8)
	store := graphstore.NewMemory(idx)
	emb := embedclient.NewDeterministic(8)
	ctx := context.Background()

	vec, err := emb.EmbedText(ctx, "gravity bends spacetime")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateConcept(ctx, model.Concept{ID: "c1", Label: "gravity", Ontology: "physics", Embedding: vec}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, "c1", "physics", vec); err != nil {
		t.Fatal(err)
	}

	s := NewSearch(emb, store, NewGroundingCalculator(store))
	hits, err := s.Query(ctx, "gravity bends spacetime", "physics", 5, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Grounding != nil {
		t.Fatalf("expected nil grounding when not requested, got %v", *hits[0].Grounding)
	}
}

func TestSearch_QueryWithGroundingAnnotatesOnlyTopK(t *testing.T) {
	idx := vectorindex.NewMemory(8)
	store := graphstore.NewMemory(idx)
	emb := embedclient.NewDeterministic(8)
	ctx := context.Background()

	vec, err := emb.EmbedText(ctx, "gravity bends spacetime")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateConcept(ctx, model.Concept{ID: "c1", Label: "gravity", Ontology: "physics", Embedding: vec}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, "c1", "physics", vec); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateConcept(ctx, model.Concept{ID: "c2", Label: "other", Ontology: "physics", Embedding: vec}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertRelationship(ctx, "c1", "c2", "SUPPORTS", 1, "src_1"); err != nil {
		t.Fatal(err)
	}

	s := NewSearch(emb, store, NewGroundingCalculator(store))
	hits, err := s.Query(ctx, "gravity bends spacetime", "physics", 1, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected topK=1 to return 1 hit, got %d", len(hits))
	}
	if hits[0].Grounding == nil {
		t.Fatalf("expected grounding to be populated")
	}
}

func TestSearch_NoHitsReturnsEmptySlice(t *testing.T) {
	idx := vectorindex.NewMemory(8)
	store := graphstore.NewMemory(idx)
	emb := embedclient.NewDeterministic(8)

	s := NewSearch(emb, store, NewGroundingCalculator(store))
	hits, err := s.Query(context.Background(), "nothing indexed yet", "physics", 5, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %v", hits)
	}
}
