package queryengine

import (
	"context"

	"github.com/kgraph/kgraph/internal/graphstore"
)

const smoothingEpsilon = 1e-6

// supportiveTypes and refutativeTypes classify relationship types for the
// grounding calculation of spec §4.9. A type not in either set contributes
// to neither sum.
var supportiveTypes = map[string]bool{
	"SUPPORTS": true, "IMPLIES": true, "EXEMPLIFIES": true, "ENABLES": true,
	"CAUSES": true, "CONFIRMS": true, "CONFIRMED_BY": true,
}

var refutativeTypes = map[string]bool{
	"REFUTES": true, "CONTRADICTS": true, "PREVENTS": true, "OPPOSITE_OF": true,
}

// GroundingCalculator computes a concept's grounding strength on demand from
// its edges, never persisting the result (spec §4.9: "computed on demand;
// cached per query, not persisted").
type GroundingCalculator struct {
	store graphstore.Store
}

func NewGroundingCalculator(store graphstore.Store) *GroundingCalculator {
	return &GroundingCalculator{store: store}
}

// Grounding returns a scalar in roughly [-1, +1]: affirmative evidence
// (supportive edges) minus contradictory evidence (refutative edges),
// normalized by their sum.
func (g *GroundingCalculator) Grounding(ctx context.Context, conceptID string) (float64, error) {
	neighbors, err := g.store.Neighbors(ctx, []string{conceptID}, nil, graphstore.DirectionBoth)
	if err != nil {
		return 0, err
	}
	return scoreGrounding(neighbors[conceptID]), nil
}

// GroundingBatch computes grounding for many concepts in a single batched
// neighbor query, used by search and polarity projection so grounding never
// triggers one query per candidate.
func (g *GroundingCalculator) GroundingBatch(ctx context.Context, conceptIDs []string) (map[string]float64, error) {
	if len(conceptIDs) == 0 {
		return map[string]float64{}, nil
	}
	neighbors, err := g.store.Neighbors(ctx, conceptIDs, nil, graphstore.DirectionBoth)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(conceptIDs))
	for _, id := range conceptIDs {
		out[id] = scoreGrounding(neighbors[id])
	}
	return out, nil
}

func scoreGrounding(edges []graphstore.NeighborEdge) float64 {
	var affirmative, contradictory float64
	for _, e := range edges {
		count := float64(e.EvidenceCount)
		if count == 0 {
			count = 1 // an edge always has at least one evidence source in practice
		}
		switch {
		case supportiveTypes[e.Type]:
			affirmative += count
		case refutativeTypes[e.Type]:
			contradictory += count
		}
	}
	return (affirmative - contradictory) / (affirmative + contradictory + smoothingEpsilon)
}
