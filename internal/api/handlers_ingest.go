package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/objectstore"
)

type ingestTextRequest struct {
	Text          string `json:"text"`
	Ontology      string `json:"ontology"`
	ForceReingest bool   `json:"force_reingest"`
	AutoApprove   bool   `json:"auto_approve"`
	TargetWords   int    `json:"target_words"`
	OverlapWords  int    `json:"overlap_words"`
	Parallel      bool   `json:"parallel"`
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Text == "" || req.Ontology == "" {
		respondError(w, apperr.Validation("text and ontology are required"))
		return
	}

	params := model.JobParams{
		Text:          req.Text,
		ForceReingest: req.ForceReingest,
		AutoApprove:   req.AutoApprove,
		TargetWords:   req.TargetWords,
		OverlapWords:  req.OverlapWords,
		Parallel:      req.Parallel,
	}
	s.submitIngestJob(w, r, model.JobTypeIngestText, req.Ontology, params)
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	s.handleIngestUpload(w, r, model.JobTypeIngestFile)
}

func (s *Server) handleIngestImage(w http.ResponseWriter, r *http.Request) {
	s.handleIngestUpload(w, r, model.JobTypeIngestImage)
}

// handleIngestUpload accepts a multipart form with a "file" part and an
// "ontology" field, stages the upload in object storage under a
// job-scoped key, and submits the job with that key as JobParams.ObjectKey
// (spec §6, §4.1 "image-as-document").
func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request, jobType model.JobType) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		respondError(w, apperr.Validation("invalid multipart form: %v", err))
		return
	}
	ontology := r.FormValue("ontology")
	if ontology == "" {
		respondError(w, apperr.Validation("ontology is required"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, apperr.Validation("file part is required: %v", err))
		return
	}
	defer file.Close()

	key := stageObjectKey(ontology, header.Filename)
	if _, err := s.objects.Put(r.Context(), key, file, objectstore.PutOptions{ContentType: header.Header.Get("Content-Type")}); err != nil {
		respondError(w, err)
		return
	}

	params := model.JobParams{
		Filename:      header.Filename,
		ObjectKey:     key,
		MIME:          header.Header.Get("Content-Type"),
		ForceReingest: r.FormValue("force_reingest") == "true",
		AutoApprove:   r.FormValue("auto_approve") == "true",
	}
	s.submitIngestJob(w, r, jobType, ontology, params)
}

func (s *Server) submitIngestJob(w http.ResponseWriter, r *http.Request, jobType model.JobType, ontology string, params model.JobParams) {
	job, err := s.queue.Submit(r.Context(), jobType, subjectOf(r), ontology, params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

// stageObjectKey derives a unique object-store key for an upload, scoped
// under the destination ontology so uploads across ontologies never collide.
func stageObjectKey(ontology, filename string) string {
	return "uploads/" + ontology + "/" + uuid.NewString() + "_" + filename
}
