package api

import (
	"net/http"

	"github.com/kgraph/kgraph/internal/apperr"
)

func (s *Server) handleVocabularyStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"active_count": s.vocab.ActiveCount(),
		"zone":         s.vocab.Zone(),
	})
}

func (s *Server) handleVocabularyList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"types": s.vocab.List()})
}

type consolidateRequest struct {
	TargetSize int     `json:"target_size"`
	Threshold  float64 `json:"threshold"`
	DryRun     bool    `json:"dry_run"`
}

func (s *Server) handleVocabularyConsolidate(w http.ResponseWriter, r *http.Request) {
	var req consolidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if s.adj == nil {
		respondError(w, apperr.Validation("no adjudicator configured; vocabulary consolidation is unavailable"))
		return
	}

	result, err := s.vocab.Consolidate(r.Context(), req.TargetSize, req.Threshold, req.DryRun, s.adj, s.retyper)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type mergeRequest struct {
	From   string `json:"from"`
	Into   string `json:"into"`
	Reason string `json:"reason"`
}

func (s *Server) handleVocabularyMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.From == "" || req.Into == "" {
		respondError(w, apperr.Validation("from and into are required"))
		return
	}

	action, err := s.vocab.ManualMerge(r.Context(), req.From, req.Into, req.Reason, s.retyper)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, action)
}

func (s *Server) handleVocabularyGenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	n, err := s.vocab.GenerateEmbeddings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"embedded_count": n})
}

func (s *Server) handleVocabularyHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := s.vocab.Get(name); !ok {
		respondError(w, apperr.NotFound("vocabulary type %s not found", name))
		return
	}
	history, err := s.vocab.History(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": history})
}
