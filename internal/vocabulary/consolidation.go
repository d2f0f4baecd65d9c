package vocabulary

import (
	"context"
	"fmt"
	"sort"

	"github.com/kgraph/kgraph/internal/vecmath"
)

// AdjudicationDecision is the adjudicator's verdict on a candidate merge pair.
type AdjudicationDecision string

const (
	DecisionMerge  AdjudicationDecision = "MERGE"
	DecisionReject AdjudicationDecision = "REJECT"
)

// Adjudicator decides whether two similar relationship types should merge,
// backed by an LLM call in production and a scripted stub in tests.
type Adjudicator interface {
	Adjudicate(ctx context.Context, sourceName, sourceDesc, targetName, targetDesc string) (AdjudicationDecision, string, error)
}

// EdgeRetyper atomically re-types all edges from one relationship type to
// another, implemented by the Graph Store Facade.
type EdgeRetyper interface {
	RetypeEdges(ctx context.Context, from, to string) (count int, err error)
}

// MergeAction describes one completed or planned merge.
type MergeAction struct {
	From       string `json:"from"`
	Into       string `json:"into"`
	Reason     string `json:"reason"`
	EdgesMoved int    `json:"edges_moved,omitempty"` // 0 in dry-run
}

// ConsolidationResult summarizes one run of the consolidation engine.
type ConsolidationResult struct {
	Plan       []MergeAction `json:"plan"`
	DryRun     bool          `json:"dry_run"`
	FinalCount int           `json:"final_count"`
}

const defaultDryRunPairCap = 10

// Consolidate implements the consolidation engine of spec §4.4: it merges
// synonymous non-builtin types until the active size reaches targetSize or
// no unprocessed candidate pairs remain.
func (m *Manager) Consolidate(ctx context.Context, targetSize int, threshold float64, dryRun bool, adj Adjudicator, retyper EdgeRetyper) (ConsolidationResult, error) {
	if threshold <= 0 {
		threshold = m.cfg.ConsolidationThreshold
	}

	pairs := m.candidatePairsLocked(threshold)

	var result ConsolidationResult
	result.DryRun = dryRun

	pairCap := len(pairs)
	if dryRun && pairCap > defaultDryRunPairCap {
		pairCap = defaultDryRunPairCap
	}

	for i := 0; i < pairCap; i++ {
		if m.ActiveCount() <= targetSize {
			break
		}
		pair := pairs[i]

		m.mu.RLock()
		key := pairKey(pair.a, pair.b)
		rejected := m.rejectedPairs[key]
		src, srcOK := m.types[pair.a]
		dst, dstOK := m.types[pair.b]
		m.mu.RUnlock()
		if rejected || !srcOK || !dstOK || !src.Active || !dst.Active {
			continue
		}

		decision, reason, err := adj.Adjudicate(ctx, src.Name, categorySeedPhrases[Category(src.Category)], dst.Name, categorySeedPhrases[Category(dst.Category)])
		if err != nil {
			return result, fmt.Errorf("adjudicate %s/%s: %w", src.Name, dst.Name, err)
		}

		switch decision {
		case DecisionMerge:
			action := MergeAction{From: src.Name, Into: dst.Name, Reason: reason}
			if !dryRun {
				count, err := retyper.RetypeEdges(ctx, src.Name, dst.Name)
				if err != nil {
					return result, fmt.Errorf("retype edges %s->%s: %w", src.Name, dst.Name, err)
				}
				action.EdgesMoved = count
				m.applyMergeLocked(ctx, src.Name, dst.Name, reason)
			}
			result.Plan = append(result.Plan, action)
		case DecisionReject:
			m.mu.Lock()
			m.rejectedPairs[key] = true
			m.mu.Unlock()
			if !dryRun {
				m.persistLocked(ctx, *src, "rejected", reason)
			}
		}
	}

	result.FinalCount = m.ActiveCount()
	return result, nil
}

// ManualMerge merges two types on direct operator request, bypassing
// adjudication (spec §6 `POST /vocabulary/merge`). Both types must be
// active and distinct.
func (m *Manager) ManualMerge(ctx context.Context, from, into, reason string, retyper EdgeRetyper) (MergeAction, error) {
	if from == into {
		return MergeAction{}, fmt.Errorf("cannot merge type %q into itself", from)
	}
	m.mu.RLock()
	src, srcOK := m.types[from]
	dst, dstOK := m.types[into]
	m.mu.RUnlock()
	if !srcOK || !src.Active {
		return MergeAction{}, fmt.Errorf("type %q is not active", from)
	}
	if !dstOK || !dst.Active {
		return MergeAction{}, fmt.Errorf("type %q is not active", into)
	}

	count, err := retyper.RetypeEdges(ctx, from, into)
	if err != nil {
		return MergeAction{}, fmt.Errorf("retype edges %s->%s: %w", from, into, err)
	}
	m.applyMergeLocked(ctx, from, into, reason)
	return MergeAction{From: from, Into: into, Reason: reason, EdgesMoved: count}, nil
}

func (m *Manager) applyMergeLocked(ctx context.Context, from, into, reason string) {
	m.mu.Lock()
	t := m.types[from]
	t.Active = false
	t.MergedInto = into
	snapshot := *t
	m.mu.Unlock()
	m.persistLocked(ctx, snapshot, "merged", fmt.Sprintf("into %s: %s", into, reason))
}

type typePair struct {
	a, b       string
	similarity float64
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// candidatePairsLocked computes all pairs of active non-builtin types with
// cosine similarity >= threshold, sorted descending.
func (m *Manager) candidatePairsLocked(threshold float64) []typePair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var nonBuiltin []string
	for name, t := range m.types {
		if t.Active && !t.Builtin {
			nonBuiltin = append(nonBuiltin, name)
		}
	}
	sort.Strings(nonBuiltin) // deterministic ordering before scoring

	var pairs []typePair
	for i := 0; i < len(nonBuiltin); i++ {
		for j := i + 1; j < len(nonBuiltin); j++ {
			a, b := m.types[nonBuiltin[i]], m.types[nonBuiltin[j]]
			sim := vecmath.Cosine(a.Embedding, b.Embedding)
			if sim >= threshold {
				pairs = append(pairs, typePair{a: a.Name, b: b.Name, similarity: sim})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].similarity > pairs[j].similarity })
	return pairs
}
