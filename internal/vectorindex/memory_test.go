package vectorindex

import (
	"context"
	"testing"
)

func TestMemoryIndex_SearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory(3)

	if err := idx.Upsert(ctx, "a", "onto1", []float32{1, 0, 0}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := idx.Upsert(ctx, "b", "onto1", []float32{0, 1, 0}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if err := idx.Upsert(ctx, "c", "onto2", []float32{1, 0, 0}); err != nil {
		t.Fatalf("upsert c: %v", err)
	}

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, "onto1", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 (ontology-scoped)", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("top match = %q, want a", matches[0].ID)
	}
}

func TestMemoryIndex_TopKCaps(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory(2)
	for _, id := range []string{"x", "y", "z"} {
		_ = idx.Upsert(ctx, id, "", []float32{1, 0})
	}
	matches, err := idx.Search(ctx, []float32{1, 0}, "", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
}

func TestMemoryIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory(2)
	_ = idx.Upsert(ctx, "a", "", []float32{1, 0})
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	matches, err := idx.Search(ctx, []float32{1, 0}, "", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0 after delete", len(matches))
	}
}
