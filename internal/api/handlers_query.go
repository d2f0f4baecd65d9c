package api

import (
	"net/http"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/queryengine"
)

type searchRequest struct {
	Query            string  `json:"query"`
	Limit            int     `json:"limit"`
	MinSimilarity    float64 `json:"min_similarity"`
	Ontology         string  `json:"ontology"`
	IncludeGrounding bool    `json:"include_grounding"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Query == "" {
		respondError(w, apperr.Validation("query is required"))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	hits, err := s.search.Query(r.Context(), req.Query, req.Ontology, req.Limit, req.MinSimilarity, req.IncludeGrounding)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, hits)
}

type conceptRequest struct {
	Action       string   `json:"action"` // details | related | connect
	ConceptID    string   `json:"concept_id"`
	ToConceptID  string   `json:"to_concept_id,omitempty"`
	EdgeTypes    []string `json:"edge_types,omitempty"`
	Direction    string   `json:"direction,omitempty"`
	MaxHops      int      `json:"max_hops,omitempty"`
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	var req conceptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ConceptID == "" {
		respondError(w, apperr.Validation("concept_id is required"))
		return
	}

	switch req.Action {
	case "", "details":
		s.conceptDetails(w, r, req.ConceptID)
	case "related":
		s.conceptRelated(w, r, req)
	case "connect":
		s.conceptConnect(w, r, req)
	default:
		respondError(w, apperr.Validation("unknown action %q, want details|related|connect", req.Action))
	}
}

func (s *Server) conceptDetails(w http.ResponseWriter, r *http.Request, conceptID string) {
	concept, ok, err := s.store.GetConcept(r.Context(), conceptID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !ok {
		respondError(w, apperr.NotFound("concept %s not found", conceptID))
		return
	}
	respondJSON(w, http.StatusOK, concept)
}

func (s *Server) conceptRelated(w http.ResponseWriter, r *http.Request, req conceptRequest) {
	dir := graphstore.DirectionBoth
	if req.Direction != "" {
		dir = graphstore.Direction(req.Direction)
	}
	out, err := s.store.Neighbors(r.Context(), []string{req.ConceptID}, req.EdgeTypes, dir)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"edges": out[req.ConceptID]})
}

func (s *Server) conceptConnect(w http.ResponseWriter, r *http.Request, req conceptRequest) {
	if req.ToConceptID == "" {
		respondError(w, apperr.Validation("to_concept_id is required for action=connect"))
		return
	}
	opt := queryengine.PathOptions{MaxHops: req.MaxHops}
	if req.Direction != "" {
		opt.Direction = graphstore.Direction(req.Direction)
	}
	path, err := s.pathf.ShortestPath(r.Context(), req.ConceptID, req.ToConceptID, opt)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, path)
}

type connectBySearchRequest struct {
	FromQuery     string  `json:"from_query"`
	ToQuery       string  `json:"to_query"`
	Ontology      string  `json:"ontology"`
	MaxHops       int     `json:"max_hops"`
	MinSimilarity float64 `json:"min_similarity"`
}

// handleConnectBySearch resolves each query string to its best-matching
// concept via semantic search, then shortest-paths between the two poles
// (spec §6 `POST /query/connect-by-search`).
func (s *Server) handleConnectBySearch(w http.ResponseWriter, r *http.Request) {
	var req connectBySearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.FromQuery == "" || req.ToQuery == "" {
		respondError(w, apperr.Validation("from_query and to_query are required"))
		return
	}

	from, err := s.bestMatch(r, req.FromQuery, req.Ontology, req.MinSimilarity)
	if err != nil {
		respondError(w, err)
		return
	}
	to, err := s.bestMatch(r, req.ToQuery, req.Ontology, req.MinSimilarity)
	if err != nil {
		respondError(w, err)
		return
	}

	path, err := s.pathf.ShortestPath(r.Context(), from.Concept.ID, to.Concept.ID, queryengine.PathOptions{MaxHops: req.MaxHops})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"from_concept": from.Concept,
		"to_concept":   to.Concept,
		"path":         path,
	})
}

func (s *Server) bestMatch(r *http.Request, query, ontology string, minSimilarity float64) (queryengine.SearchHit, error) {
	hits, err := s.search.Query(r.Context(), query, ontology, 1, minSimilarity, false)
	if err != nil {
		return queryengine.SearchHit{}, err
	}
	if len(hits) == 0 {
		return queryengine.SearchHit{}, apperr.NotFound("no concept matched query %q", query)
	}
	return hits[0], nil
}

type polarityAxisRequest struct {
	PositivePoleID      string   `json:"positive_pole_id"`
	NegativePoleID      string   `json:"negative_pole_id"`
	CandidateIDs        []string `json:"candidate_ids,omitempty"`
	MaxHops             int      `json:"max_hops,omitempty"`
	IncludeGrounding    bool     `json:"include_grounding,omitempty"`
	IncludePathAnalysis bool     `json:"include_path_analysis,omitempty"`
}

func (s *Server) handlePolarityAxis(w http.ResponseWriter, r *http.Request) {
	var req polarityAxisRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.PositivePoleID == "" || req.NegativePoleID == "" {
		respondError(w, apperr.Validation("positive_pole_id and negative_pole_id are required"))
		return
	}

	result, err := s.polarity.Project(r.Context(), queryengine.PolarityOptions{
		PositivePoleID: req.PositivePoleID,
		NegativePoleID: req.NegativePoleID,
		CandidateIDs:   req.CandidateIDs,
		MaxHops:        req.MaxHops,
		WithGrounding:  req.IncludeGrounding,
		WithPaths:      req.IncludePathAnalysis,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type discoverAxesRequest struct {
	RelationshipTypes []string `json:"relationship_types"`
	MinMagnitude      float64  `json:"min_magnitude"`
	MaxResults        int      `json:"max_results"`
}

func (s *Server) handleDiscoverPolarityAxes(w http.ResponseWriter, r *http.Request) {
	var req discoverAxesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.RelationshipTypes) == 0 {
		respondError(w, apperr.Validation("relationship_types is required"))
		return
	}

	candidates, err := s.polarity.DiscoverAxes(r.Context(), queryengine.AxisDiscoveryOptions{
		RelationshipTypes: req.RelationshipTypes,
		MinMagnitude:      req.MinMagnitude,
		MaxResults:        req.MaxResults,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}
