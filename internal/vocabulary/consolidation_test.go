package vocabulary

import (
	"context"
	"testing"
	"time"

	"github.com/kgraph/kgraph/internal/model"
)

type scriptedAdjudicator struct {
	decision AdjudicationDecision
	reason   string
	calls    int
}

func (a *scriptedAdjudicator) Adjudicate(ctx context.Context, sourceName, sourceDesc, targetName, targetDesc string) (AdjudicationDecision, string, error) {
	a.calls++
	return a.decision, a.reason, nil
}

type fakeRetyper struct {
	calls      int
	moved      int
	lastFrom   string
	lastTo     string
}

func (r *fakeRetyper) RetypeEdges(ctx context.Context, from, to string) (int, error) {
	r.calls++
	r.lastFrom, r.lastTo = from, to
	return r.moved, nil
}

func TestConsolidate_MergeRetypesAndDeactivates(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedNonBuiltinPair(m, "ALPHA_LIKE", "ALPHA_LIKE_TOO")

	adj := &scriptedAdjudicator{decision: DecisionMerge, reason: "same meaning"}
	retyper := &fakeRetyper{moved: 3}

	before := m.ActiveCount()
	result, err := m.Consolidate(ctx, before-1, 0.5, false, adj, retyper)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if adj.calls != 1 {
		t.Fatalf("adjudicator calls = %d, want 1", adj.calls)
	}
	if retyper.calls != 1 {
		t.Fatalf("retyper calls = %d, want 1", retyper.calls)
	}
	if len(result.Plan) != 1 || result.Plan[0].EdgesMoved != 3 {
		t.Fatalf("plan = %+v, want one merge with 3 edges moved", result.Plan)
	}
	if m.ActiveCount() != before-1 {
		t.Fatalf("ActiveCount = %d, want %d", m.ActiveCount(), before-1)
	}
}

func TestConsolidate_RejectIsRemembered(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedNonBuiltinPair(m, "BETA_LIKE", "BETA_LIKE_TOO")

	adj := &scriptedAdjudicator{decision: DecisionReject, reason: "distinct nuance"}
	retyper := &fakeRetyper{}

	before := m.ActiveCount()
	_, err = m.Consolidate(ctx, 0, 0.5, false, adj, retyper)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if retyper.calls != 0 {
		t.Fatalf("retyper should not be called on reject, got %d calls", retyper.calls)
	}
	if m.ActiveCount() != before {
		t.Fatalf("ActiveCount changed on reject: %d -> %d", before, m.ActiveCount())
	}

	// Re-running should skip the already-rejected pair rather than asking again.
	_, err = m.Consolidate(ctx, 0, 0.5, false, adj, retyper)
	if err != nil {
		t.Fatalf("Consolidate (second run): %v", err)
	}
	if adj.calls != 1 {
		t.Fatalf("adjudicator calls = %d after second run, want 1 (pair should be remembered)", adj.calls)
	}
}

func TestConsolidate_DryRunDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedNonBuiltinPair(m, "GAMMA_LIKE", "GAMMA_LIKE_TOO")

	adj := &scriptedAdjudicator{decision: DecisionMerge, reason: "same meaning"}
	retyper := &fakeRetyper{moved: 9}

	before := m.ActiveCount()
	result, err := m.Consolidate(ctx, 0, 0.5, true, adj, retyper)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if retyper.calls != 0 {
		t.Fatalf("retyper should not run in dry-run mode, got %d calls", retyper.calls)
	}
	if len(result.Plan) != 1 || result.Plan[0].EdgesMoved != 0 {
		t.Fatalf("dry-run plan = %+v, want one planned merge with 0 edges moved", result.Plan)
	}
	if m.ActiveCount() != before {
		t.Fatalf("ActiveCount changed during dry-run: %d -> %d", before, m.ActiveCount())
	}
}

func TestManualMerge_RetypesAndDeactivatesSource(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedNonBuiltinPair(m, "EPSILON_LIKE", "EPSILON_LIKE_TOO")
	retyper := &fakeRetyper{moved: 4}

	action, err := m.ManualMerge(ctx, "EPSILON_LIKE", "EPSILON_LIKE_TOO", "operator call", retyper)
	if err != nil {
		t.Fatalf("ManualMerge: %v", err)
	}
	if action.EdgesMoved != 4 {
		t.Fatalf("EdgesMoved = %d, want 4", action.EdgesMoved)
	}
	if got, _ := m.Get("EPSILON_LIKE"); got.Active {
		t.Fatal("expected source type to be deactivated")
	}
}

func TestManualMerge_RejectsSameTypeTwice(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.ManualMerge(ctx, "CAUSES", "CAUSES", "", &fakeRetyper{}); err == nil {
		t.Fatal("expected an error merging a type into itself")
	}
}

func TestManualMerge_RejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder(8)
	m, err := New(ctx, testConfig(), emb, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.ManualMerge(ctx, "NOPE", "CAUSES", "", &fakeRetyper{}); err == nil {
		t.Fatal("expected an error merging an unknown type")
	}
}

// seedNonBuiltinPair injects two non-builtin types sharing one embedding
// directly into the manager, so candidatePairsLocked finds them as a
// similarity-1.0 pair without depending on the fake embedder's hashing.
func seedNonBuiltinPair(m *Manager, nameA, nameB string) {
	vec := farVector(8)
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, n := range []string{nameA, nameB} {
		m.types[n] = &model.VocabularyType{
			Name: n, Active: true, Builtin: false,
			Category: string(CategoryMeta), Embedding: vec, CreatedAt: now,
		}
	}
}
