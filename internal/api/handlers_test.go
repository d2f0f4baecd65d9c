package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kgraph/kgraph/internal/authn"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/embedclient"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/jobqueue"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/objectstore"
	"github.com/kgraph/kgraph/internal/queryengine"
	"github.com/kgraph/kgraph/internal/vectorindex"
	"github.com/kgraph/kgraph/internal/vocabulary"
)

// constEstimator always returns the same cost, keeping job submission tests
// independent of the real chunker-based pricing logic.
type constEstimator float64

func (c constEstimator) Estimate(_ context.Context, _ model.JobParams) (float64, error) {
	return float64(c), nil
}

type testHarness struct {
	srv   *Server
	store graphstore.Store
	token string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	idx := vectorindex.NewMemory(4)
	store := graphstore.NewMemory(idx)
	embedder := embedclient.NewDeterministic(4)
	grounding := queryengine.NewGroundingCalculator(store)
	pathf := queryengine.NewPathfinder(store)
	search := queryengine.NewSearch(embedder, store, grounding)
	polarity := queryengine.NewPolarity(store, grounding, pathf)

	jobStore := jobqueue.NewMemoryStore()
	queue := jobqueue.New(jobStore, constEstimator(0), config.JobQueueConfig{})

	vocabRepo := vocabulary.NewMemoryRepository()
	vocabCfg := config.VocabularyConfig{ConsolidationThreshold: 0.9, ZoneOptimalMax: 90, ZoneMixedMax: 120, ZoneTooLargeMax: 200}
	vocabMgr, err := vocabulary.New(ctx, vocabCfg, embedder, vocabRepo)
	if err != nil {
		t.Fatalf("vocabulary.New: %v", err)
	}

	objects := objectstore.NewMemoryStore()
	secret := "test-secret"
	verifier := authn.NewHMACVerifier(secret)
	issuer := authn.NewIssuer(secret, time.Hour)
	token, err := issuer.Issue("user-1", "user-1@example.com", nil, "")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	srv := NewServer(Deps{
		Queue:      queue,
		Store:      store,
		Objects:    objects,
		Search:     search,
		Pathfinder: pathf,
		Polarity:   polarity,
		Grounding:  grounding,
		Vocabulary: vocabMgr,
		Verifier:   verifier,
	})

	return &testHarness{srv: srv, store: store, token: token}
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func TestIngestText_SubmitsAutoApprovedJob(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodPost, "/ingest/text", ingestTextRequest{
		Text: "water boils at 100C", Ontology: "chem", AutoApprove: true,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var job model.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != model.JobApproved {
		t.Fatalf("status = %q, want approved (auto_approve requested)", job.Status)
	}
	if job.Owner != "user-1" {
		t.Fatalf("owner = %q, want the authenticated subject", job.Owner)
	}
}

func TestIngestText_RejectsMissingFields(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodPost, "/ingest/text", ingestTextRequest{Text: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetJob_UnknownIDReturns404(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, "/jobs/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobLifecycle_SubmitApproveCancelDelete(t *testing.T) {
	h := newTestHarness(t)

	submitRec := h.do(t, http.MethodPost, "/ingest/text", ingestTextRequest{Text: "x", Ontology: "o"})
	var job model.Job
	if err := json.Unmarshal(submitRec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if job.Status != model.JobAwaitingApproval {
		t.Fatalf("status = %q, want awaiting_approval (cost above auto-approve threshold is not set here)", job.Status)
	}

	approveRec := h.do(t, http.MethodPost, "/jobs/"+job.ID+"/approve", nil)
	if approveRec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", approveRec.Code, approveRec.Body.String())
	}

	cancelRec := h.do(t, http.MethodPost, "/jobs/"+job.ID+"/cancel", nil)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", cancelRec.Code, cancelRec.Body.String())
	}

	deleteRec := h.do(t, http.MethodDelete, "/jobs/"+job.ID, nil)
	if deleteRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", deleteRec.Code, deleteRec.Body.String())
	}
}

func TestRequestWithoutBearerTokenIsUnauthorized(t *testing.T) {
	h := newTestHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSearch_ReturnsVectorIndexHits(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	concept := model.Concept{ID: "c1", Label: "boiling point", Ontology: "chem"}
	if err := h.store.CreateConcept(ctx, concept); err != nil {
		t.Fatalf("create concept: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/query/search", searchRequest{Query: "boiling point", Ontology: "chem", Limit: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestVocabularyList_ReturnsBuiltinTypes(t *testing.T) {
	h := newTestHarness(t)
	rec := h.do(t, http.MethodGet, "/vocabulary/list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Types []model.VocabularyType `json:"types"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Types) == 0 {
		t.Fatal("want at least the builtin vocabulary types")
	}
}

func TestDeleteOntology_RemovesIt(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	if err := h.store.CreateConcept(ctx, model.Concept{ID: "c1", Ontology: "scratch"}); err != nil {
		t.Fatalf("create concept: %v", err)
	}

	rec := h.do(t, http.MethodDelete, "/ontology/scratch", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	ontologies, err := h.store.ListOntologies(ctx)
	if err != nil {
		t.Fatalf("list ontologies: %v", err)
	}
	for _, o := range ontologies {
		if o.Name == "scratch" {
			t.Fatalf("ontology %q still present after delete", o.Name)
		}
	}
}
