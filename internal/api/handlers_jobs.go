package api

import (
	"net/http"

	"github.com/kgraph/kgraph/internal/apperr"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	ontology := r.URL.Query().Get("ontology")
	jobs, err := s.queue.List(r.Context(), owner, ontology)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok, err := s.queue.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if !ok {
		respondError(w, apperr.NotFound("job %s not found", id))
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleApproveJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleRejectJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	// A body is optional here: rejecting without a reason is valid.
	_ = decodeJSON(r, &body)

	job, err := s.queue.Reject(r.Context(), r.PathValue("id"), body.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
