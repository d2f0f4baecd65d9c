package vocabulary

import (
	"context"
	"testing"

	"github.com/kgraph/kgraph/internal/model"
)

func TestMemoryRepository_SaveThenLoadAllRoundtrips(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if err := repo.Save(ctx, model.VocabularyType{Name: "CAUSES", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, model.VocabularyType{Name: "ENABLES", Active: true}); err != nil {
		t.Fatal(err)
	}

	types, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
}

func TestMemoryRepository_SaveOverwritesByName(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if err := repo.Save(ctx, model.VocabularyType{Name: "CAUSES", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, model.VocabularyType{Name: "CAUSES", Active: false, MergedInto: "ENABLES"}); err != nil {
		t.Fatal(err)
	}

	types, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0].Active || types[0].MergedInto != "ENABLES" {
		t.Fatalf("expected overwritten inactive record, got %+v", types)
	}
}

func TestMemoryRepository_HistoryIsOrderedPerType(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	if err := repo.AppendHistory(ctx, model.VocabularyHistoryEntry{TypeName: "CAUSES", Action: "created"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendHistory(ctx, model.VocabularyHistoryEntry{TypeName: "ENABLES", Action: "created"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendHistory(ctx, model.VocabularyHistoryEntry{TypeName: "CAUSES", Action: "merged"}); err != nil {
		t.Fatal(err)
	}

	hist, err := repo.History(ctx, "CAUSES")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Action != "created" || hist[1].Action != "merged" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestMemoryRepository_HistoryOfUnknownTypeIsEmpty(t *testing.T) {
	repo := NewMemoryRepository()
	hist, err := repo.History(context.Background(), "NOPE")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 0 {
		t.Fatalf("expected empty history, got %+v", hist)
	}
}
