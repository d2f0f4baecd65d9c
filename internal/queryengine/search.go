package queryengine

import (
	"context"

	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
)

// SearchHit augments a graph store search hit with an optional grounding
// score, computed only for the top-K candidates (spec §4.12), never over
// the whole graph.
type SearchHit struct {
	graphstore.SearchHit
	Grounding *float64
}

// Search performs semantic concept search, grounded post-filter on demand.
type Search struct {
	embedder  embedclient.Client
	store     graphstore.Store
	grounding *GroundingCalculator
}

func NewSearch(embedder embedclient.Client, store graphstore.Store, grounding *GroundingCalculator) *Search {
	return &Search{embedder: embedder, store: store, grounding: grounding}
}

// Query embeds queryText, runs ontology-scoped vector search, and — if
// withGrounding is set — computes grounding for exactly the returned top-K
// hits in one batched neighbor query.
func (s *Search) Query(ctx context.Context, queryText, ontology string, topK int, threshold float64, withGrounding bool) ([]SearchHit, error) {
	vec, err := s.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.VectorSearch(ctx, vec, ontology, topK, threshold)
	if err != nil {
		return nil, err
	}

	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{SearchHit: h}
	}
	if !withGrounding || len(hits) == 0 {
		return out, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Concept.ID
	}
	groundings, err := s.grounding.GroundingBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		g := groundings[out[i].Concept.ID]
		out[i].Grounding = &g
	}
	return out, nil
}
