// Package api exposes the HTTP surface for ingestion, query, ontology,
// and vocabulary operations over the job queue, graph store, and query
// engine.
package api

import (
	"net/http"

	"github.com/kgraph/kgraph/internal/authn"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/jobqueue"
	"github.com/kgraph/kgraph/internal/objectstore"
	"github.com/kgraph/kgraph/internal/queryengine"
	"github.com/kgraph/kgraph/internal/vocabulary"
)

// Server exposes the knowledge-graph HTTP API.
type Server struct {
	mux     *http.ServeMux
	handler http.Handler

	queue    *jobqueue.Queue
	store    graphstore.Store
	objects  objectstore.ObjectStore
	search   *queryengine.Search
	pathf    *queryengine.Pathfinder
	polarity *queryengine.Polarity
	grounder *queryengine.GroundingCalculator
	vocab    *vocabulary.Manager
	adj      vocabulary.Adjudicator
	retyper  vocabulary.EdgeRetyper
	verifier authn.Verifier
}

// Deps bundles the collaborators a Server is wired to. Every field is
// required except Adjudicator, which is only needed by
// POST /vocabulary/consolidate.
type Deps struct {
	Queue      *jobqueue.Queue
	Store      graphstore.Store
	Objects    objectstore.ObjectStore
	Search     *queryengine.Search
	Pathfinder *queryengine.Pathfinder
	Polarity   *queryengine.Polarity
	Grounding  *queryengine.GroundingCalculator
	Vocabulary *vocabulary.Manager
	Adjudicator vocabulary.Adjudicator
	EdgeRetyper vocabulary.EdgeRetyper
	Verifier   authn.Verifier
}

// NewServer wires deps into a Server and registers every route.
func NewServer(deps Deps) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		queue:    deps.Queue,
		store:    deps.Store,
		objects:  deps.Objects,
		search:   deps.Search,
		pathf:    deps.Pathfinder,
		polarity: deps.Polarity,
		grounder: deps.Grounding,
		vocab:    deps.Vocabulary,
		adj:      deps.Adjudicator,
		retyper:  deps.EdgeRetyper,
		verifier: deps.Verifier,
	}
	s.registerRoutes()
	s.handler = authn.Middleware(s.verifier, true)(s.mux)
	return s
}

// ServeHTTP satisfies http.Handler. Auth runs at this outer layer so every
// registered route is covered uniformly; individual handlers read the
// principal back out via authn.CurrentPrincipal.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	// Ingestion
	s.mux.HandleFunc("POST /ingest/text", s.handleIngestText)
	s.mux.HandleFunc("POST /ingest/file", s.handleIngestFile)
	s.mux.HandleFunc("POST /ingest/image", s.handleIngestImage)

	// Jobs
	s.mux.HandleFunc("GET /jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /jobs/{id}/approve", s.handleApproveJob)
	s.mux.HandleFunc("POST /jobs/{id}/reject", s.handleRejectJob)
	s.mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancelJob)
	s.mux.HandleFunc("DELETE /jobs/{id}", s.handleDeleteJob)

	// Query
	s.mux.HandleFunc("POST /query/search", s.handleSearch)
	s.mux.HandleFunc("POST /query/concept", s.handleConcept)
	s.mux.HandleFunc("POST /query/connect-by-search", s.handleConnectBySearch)
	s.mux.HandleFunc("POST /query/polarity-axis", s.handlePolarityAxis)
	s.mux.HandleFunc("POST /query/discover-polarity-axes", s.handleDiscoverPolarityAxes)

	// Ontology / documents
	s.mux.HandleFunc("GET /ontology", s.handleListOntologies)
	s.mux.HandleFunc("GET /ontology/{name}", s.handleGetOntology)
	s.mux.HandleFunc("PATCH /ontology/{name}", s.handleRenameOntology)
	s.mux.HandleFunc("GET /ontology/{name}/files", s.handleOntologyFiles)
	s.mux.HandleFunc("DELETE /ontology/{name}", s.handleDeleteOntology)
	s.mux.HandleFunc("GET /documents/{id}/content", s.handleDocumentContent)
	s.mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)

	// Vocabulary
	s.mux.HandleFunc("GET /vocabulary/status", s.handleVocabularyStatus)
	s.mux.HandleFunc("GET /vocabulary/list", s.handleVocabularyList)
	s.mux.HandleFunc("POST /vocabulary/consolidate", s.handleVocabularyConsolidate)
	s.mux.HandleFunc("POST /vocabulary/merge", s.handleVocabularyMerge)
	s.mux.HandleFunc("POST /vocabulary/generate-embeddings", s.handleVocabularyGenerateEmbeddings)
	s.mux.HandleFunc("GET /vocabulary/{name}/history", s.handleVocabularyHistory)
}

// subjectOf returns the authenticated principal's subject, or "" if the
// request reached the handler without one (middleware not wired, or
// Middleware(require=false) in a future configuration).
func subjectOf(r *http.Request) string {
	p, ok := authn.CurrentPrincipal(r.Context())
	if !ok {
		return ""
	}
	return p.Subject
}
