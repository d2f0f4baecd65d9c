package graphstore

import (
	"context"
	"testing"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

func TestUpsertRelationship_RejectsMissingEvidence(t *testing.T) {
	s := NewMemory(vectorindex.NewMemory(4))
	_, err := s.UpsertRelationship(context.Background(), "a", "b", "CAUSES", 0.9, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want a validation error", err)
	}
}

func TestUpsertRelationship_AppendsEvidenceOnRepeat(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(4))

	r1, err := s.UpsertRelationship(ctx, "a", "b", "CAUSES", 0.5, "src1")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	r2, err := s.UpsertRelationship(ctx, "a", "b", "CAUSES", 0.9, "src2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if r2.ID != r1.ID {
		t.Fatalf("second upsert created a new edge: %q != %q", r2.ID, r1.ID)
	}
	if len(r2.Evidence) != 2 {
		t.Fatalf("evidence = %v, want 2 entries", r2.Evidence)
	}
	if r2.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9 (max of the two)", r2.Confidence)
	}

	// Same evidence id again must not duplicate.
	r3, err := s.UpsertRelationship(ctx, "a", "b", "CAUSES", 0.1, "src2")
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if len(r3.Evidence) != 2 {
		t.Fatalf("evidence = %v, want still 2 entries (no duplicate)", r3.Evidence)
	}
}

func TestNeighbors_BatchedAndDirectional(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(4))
	if _, err := s.UpsertRelationship(ctx, "a", "b", "CAUSES", 0.8, "src1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertRelationship(ctx, "c", "a", "SUPPORTS", 0.6, "src2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := s.Neighbors(ctx, []string{"a"}, nil, DirectionBoth)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	edges := out["a"]
	if len(edges) != 2 {
		t.Fatalf("edges for a = %+v, want 2", edges)
	}

	outOnly, err := s.Neighbors(ctx, []string{"a"}, nil, DirectionOut)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(outOnly["a"]) != 1 || outOnly["a"][0].OtherConceptID != "b" {
		t.Fatalf("outgoing-only edges = %+v", outOnly["a"])
	}
}

func TestNeighbors_RejectsEmptyAndOversizedBatches(t *testing.T) {
	s := NewMemory(vectorindex.NewMemory(4))
	ctx := context.Background()

	if _, err := s.Neighbors(ctx, nil, nil, DirectionBoth); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty batch: got %v, want validation error", err)
	}

	big := make([]string, maxNeighborBatch+1)
	for i := range big {
		big[i] = "x"
	}
	if _, err := s.Neighbors(ctx, big, nil, DirectionBoth); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("oversized batch: got %v, want validation error", err)
	}
}

func TestRetypeEdges_MergesOnCollision(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(4))
	if _, err := s.UpsertRelationship(ctx, "a", "b", "OLD_TYPE", 0.5, "src1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertRelationship(ctx, "a", "b", "NEW_TYPE", 0.4, "src2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	count, err := s.RetypeEdges(ctx, "OLD_TYPE", "NEW_TYPE")
	if err != nil {
		t.Fatalf("RetypeEdges: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	out, err := s.Neighbors(ctx, []string{"a"}, nil, DirectionOut)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(out["a"]) != 1 {
		t.Fatalf("edges after retype = %+v, want exactly 1 merged edge", out["a"])
	}
	if out["a"][0].Type != "NEW_TYPE" {
		t.Fatalf("merged edge type = %q, want NEW_TYPE", out["a"][0].Type)
	}
}

func TestEdgesByType_ReturnsOnlyMatchingType(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(4))
	if _, err := s.UpsertRelationship(ctx, "a", "b", "SUPPORTS", 1, "src1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertRelationship(ctx, "c", "d", "SUPPORTS", 1, "src2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertRelationship(ctx, "a", "c", "REFUTES", 1, "src3"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	edges, err := s.EdgesByType(ctx, "SUPPORTS")
	if err != nil {
		t.Fatalf("EdgesByType: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %+v, want 2", edges)
	}
	for _, e := range edges {
		if e.Type != "SUPPORTS" {
			t.Fatalf("unexpected type %q in SUPPORTS query", e.Type)
		}
	}
}

func TestVectorSearch_FiltersByThreshold(t *testing.T) {
	ctx := context.Background()
	idx := vectorindex.NewMemory(2)
	s := NewMemory(idx)

	if err := s.CreateConcept(ctx, model.Concept{ID: "c1", Label: "one", Ontology: "o"}); err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if err := idx.Upsert(ctx, "c1", "o", []float32{1, 0}); err != nil {
		t.Fatalf("index upsert: %v", err)
	}

	hits, err := s.VectorSearch(ctx, []float32{1, 0}, "o", 10, 0.99)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(hits) != 1 || hits[0].Concept.ID != "c1" {
		t.Fatalf("hits = %+v", hits)
	}

	none, err := s.VectorSearch(ctx, []float32{0, 1}, "o", 10, 0.5)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("hits = %+v, want none below threshold", none)
	}
}

func TestListOntologies_DedupsAcrossConceptsAndDocuments(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(2))

	if err := s.CreateConcept(ctx, model.Concept{ID: "c1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CreateDocument(ctx, model.Document{ID: "d1", ContentHash: "h1", Ontology: "biology"}); err != nil {
		t.Fatal(err)
	}

	ontologies, err := s.ListOntologies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ontologies) != 2 {
		t.Fatalf("ontologies = %+v, want physics and biology", ontologies)
	}
}

func TestDocumentsByOntology_ReturnsOnlyMatching(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(2))

	if _, _, err := s.CreateDocument(ctx, model.Document{ID: "d1", ContentHash: "h1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CreateDocument(ctx, model.Document{ID: "d2", ContentHash: "h2", Ontology: "biology"}); err != nil {
		t.Fatal(err)
	}

	docs, err := s.DocumentsByOntology(ctx, "physics")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Fatalf("docs = %+v, want only d1", docs)
	}
}

func TestDeleteOntology_RemovesConceptsSourcesDocumentsAndTheirEdges(t *testing.T) {
	ctx := context.Background()
	idx := vectorindex.NewMemory(2)
	s := NewMemory(idx)

	if err := s.CreateConcept(ctx, model.Concept{ID: "c1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateConcept(ctx, model.Concept{ID: "c2", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertRelationship(ctx, "c1", "c2", "CAUSES", 0.9, "src1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CreateDocument(ctx, model.Document{ID: "d1", ContentHash: "h1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSource(ctx, model.Source{ID: "s1", DocumentID: "d1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateInstance(ctx, model.Instance{ConceptID: "c1", SourceID: "s1"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteOntology(ctx, "physics"); err != nil {
		t.Fatalf("DeleteOntology: %v", err)
	}

	if _, ok, _ := s.GetConcept(ctx, "c1"); ok {
		t.Fatal("expected c1 to be deleted")
	}
	if _, ok, _ := s.GetDocument(ctx, "d1"); ok {
		t.Fatal("expected d1 to be deleted")
	}
	edges, err := s.EdgesByType(ctx, "CAUSES")
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected CAUSES edges to be gone, got %+v", edges)
	}
}

func TestDeleteDocument_RemovesItsSourcesButNotConcepts(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(vectorindex.NewMemory(2))

	if err := s.CreateConcept(ctx, model.Concept{ID: "c1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CreateDocument(ctx, model.Document{ID: "d1", ContentHash: "h1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSource(ctx, model.Source{ID: "s1", DocumentID: "d1", Ontology: "physics"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateInstance(ctx, model.Instance{ConceptID: "c1", SourceID: "s1"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, ok, _ := s.GetDocument(ctx, "d1"); ok {
		t.Fatal("expected d1 to be deleted")
	}
	if _, ok, _ := s.GetSource(ctx, "s1"); ok {
		t.Fatal("expected s1 to be deleted")
	}
	if _, ok, _ := s.GetConcept(ctx, "c1"); !ok {
		t.Fatal("expected c1 to survive document deletion")
	}
}
