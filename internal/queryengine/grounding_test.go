package queryengine

import (
	"context"
	"testing"

	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

func newGroundingFixture(t *testing.T) *graphstore.MemoryStore {
	t.Helper()
	store := graphstore.NewMemory(vectorindex.NewMemory(4))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.CreateConcept(ctx, model.Concept{ID: id, Label: id, Ontology: "test"}); err != nil {
			t.Fatalf("create concept %s: %v", id, err)
		}
	}
	return store
}

func TestGrounding_AllSupportiveIsPositive(t *testing.T) {
	store := newGroundingFixture(t)
	ctx := context.Background()
	if _, err := store.UpsertRelationship(ctx, "a", "b", "SUPPORTS", 1, "src_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertRelationship(ctx, "a", "c", "IMPLIES", 1, "src_2"); err != nil {
		t.Fatal(err)
	}

	g := NewGroundingCalculator(store)
	score, err := g.Grounding(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if score <= 0 {
		t.Fatalf("expected positive grounding for all-supportive concept, got %v", score)
	}
}

func TestGrounding_AllRefutativeIsNegative(t *testing.T) {
	store := newGroundingFixture(t)
	ctx := context.Background()
	if _, err := store.UpsertRelationship(ctx, "a", "b", "REFUTES", 1, "src_1"); err != nil {
		t.Fatal(err)
	}

	g := NewGroundingCalculator(store)
	score, err := g.Grounding(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if score >= 0 {
		t.Fatalf("expected negative grounding for all-refutative concept, got %v", score)
	}
}

func TestGrounding_NoEdgesIsNearZero(t *testing.T) {
	store := newGroundingFixture(t)
	g := NewGroundingCalculator(store)
	score, err := g.Grounding(context.Background(), "d")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Fatalf("expected zero grounding for unconnected concept, got %v", score)
	}
}

func TestGrounding_MixedEvidenceBalances(t *testing.T) {
	store := newGroundingFixture(t)
	ctx := context.Background()
	if _, err := store.UpsertRelationship(ctx, "a", "b", "SUPPORTS", 1, "src_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertRelationship(ctx, "a", "c", "CONTRADICTS", 1, "src_2"); err != nil {
		t.Fatal(err)
	}

	g := NewGroundingCalculator(store)
	score, err := g.Grounding(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if score < -0.1 || score > 0.1 {
		t.Fatalf("expected near-balanced grounding for one support + one contradiction, got %v", score)
	}
}

func TestGroundingBatch_ComputesAllInOneQuery(t *testing.T) {
	store := newGroundingFixture(t)
	ctx := context.Background()
	if _, err := store.UpsertRelationship(ctx, "a", "b", "SUPPORTS", 1, "src_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertRelationship(ctx, "b", "c", "REFUTES", 1, "src_2"); err != nil {
		t.Fatal(err)
	}

	g := NewGroundingCalculator(store)
	scores, err := g.GroundingBatch(ctx, []string{"a", "b", "d"})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores["a"] <= 0 {
		t.Fatalf("expected positive grounding for a, got %v", scores["a"])
	}
	if scores["d"] != 0 {
		t.Fatalf("expected zero grounding for unconnected d, got %v", scores["d"])
	}
}

func TestGroundingBatch_EmptyInputReturnsEmptyMap(t *testing.T) {
	store := newGroundingFixture(t)
	g := NewGroundingCalculator(store)
	scores, err := g.GroundingBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected empty map, got %v", scores)
	}
}
