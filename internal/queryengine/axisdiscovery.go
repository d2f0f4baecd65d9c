package queryengine

import (
	"context"
	"sort"

	"github.com/kgraph/kgraph/internal/vecmath"
)

// AxisCandidate is one discovered pole pair and the magnitude of the axis
// between its endpoints' embeddings.
type AxisCandidate struct {
	PositivePoleID string
	NegativePoleID string
	RelationType   string
	Magnitude      float64
}

// AxisDiscoveryOptions bounds a discover-polarity-axes request.
type AxisDiscoveryOptions struct {
	RelationshipTypes []string
	MinMagnitude      float64
	MaxResults        int
}

// DiscoverAxes scans edges of each candidate relationship type, treats each
// edge's (from, to) endpoints as a candidate pole pair, computes the axis
// magnitude between their embeddings, and returns the strongest pairs. It
// never proposes a pair below MinMagnitude, and caps output at MaxResults.
func (pz *Polarity) DiscoverAxes(ctx context.Context, opt AxisDiscoveryOptions) ([]AxisCandidate, error) {
	if opt.MaxResults <= 0 {
		opt.MaxResults = 20
	}

	seenPair := make(map[[2]string]bool)
	var candidates []AxisCandidate

	for _, relType := range opt.RelationshipTypes {
		edges, err := pz.store.EdgesByType(ctx, relType)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			pairKey := [2]string{e.FromID, e.ToID}
			if seenPair[pairKey] {
				continue
			}
			seenPair[pairKey] = true

			from, ok, err := pz.store.GetConcept(ctx, e.FromID)
			if err != nil {
				return nil, err
			}
			if !ok || len(from.Embedding) == 0 {
				continue
			}
			to, ok, err := pz.store.GetConcept(ctx, e.ToID)
			if err != nil {
				return nil, err
			}
			if !ok || len(to.Embedding) == 0 {
				continue
			}

			magnitude := vecmath.Norm64(vecmath.Sub(from.Embedding, to.Embedding))
			if magnitude < opt.MinMagnitude {
				continue
			}
			candidates = append(candidates, AxisCandidate{
				PositivePoleID: e.FromID, NegativePoleID: e.ToID, RelationType: relType, Magnitude: magnitude,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Magnitude > candidates[j].Magnitude })
	if len(candidates) > opt.MaxResults {
		candidates = candidates[:opt.MaxResults]
	}
	return candidates, nil
}
