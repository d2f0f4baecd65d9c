// Package graphstore implements the Graph Store Facade of spec §4.6: the
// sole mutator of concepts, sources, instances, and relationships, exposing
// only batched one-hop neighbor queries and ontology-scoped vector search —
// never variable-length path syntax or unbounded traversal.
package graphstore

import (
	"context"
	"fmt"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/vectorindex"
)

// Direction constrains a neighbor query to outgoing, incoming, or both.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

const maxNeighborBatch = 1000

// NeighborEdge is one edge surfaced by a neighbor query, oriented from the
// queried concept to the other endpoint.
type NeighborEdge struct {
	OtherConceptID string
	Type           string
	Confidence     float64
	EvidenceCount  int
	Outgoing       bool // true if the queried concept was the FromID
}

// SearchHit pairs a hydrated concept with its similarity score.
type SearchHit struct {
	Concept    model.Concept
	Similarity float64
}

// Stats reports coarse graph size: concept, relationship, and source counts.
type Stats struct {
	ConceptCount      int64
	RelationshipCount int64
	SourceCount       int64
}

// Store is the Graph Store Facade. It is the only component permitted to
// write concepts, sources, instances, or relationships (spec §4.6) —
// ingestion, consolidation, and the API all go through it rather than
// touching storage directly.
type Store interface {
	CreateConcept(ctx context.Context, c model.Concept) error
	GetConcept(ctx context.Context, id string) (model.Concept, bool, error)

	// AppendSearchTerms merges terms into a concept's existing SearchTerms,
	// de-duplicated, without touching Description (spec §4.5 step 3: reused
	// concepts gain new search terms but never have their description
	// overwritten).
	AppendSearchTerms(ctx context.Context, conceptID string, terms []string) error

	CreateSource(ctx context.Context, s model.Source) error
	GetSource(ctx context.Context, id string) (model.Source, bool, error)
	// SourcesByDocument returns a document's sources ordered by Ordinal.
	SourcesByDocument(ctx context.Context, documentID string) ([]model.Source, error)

	// CreateDocument is a no-op if a document with the same ContentHash
	// already exists in the same Ontology, returning the existing one (spec §4's "re-ingesting
	// the same content is a no-op unless force" uniqueness rule).
	CreateDocument(ctx context.Context, d model.Document) (model.Document, bool, error)
	GetDocument(ctx context.Context, id string) (model.Document, bool, error)
	GetDocumentByContentHash(ctx context.Context, ontology, contentHash string) (model.Document, bool, error)

	// RetagOntology moves every concept, source, and document tagged
	// oldOntology to newOntology in one transaction (ontology rename).
	RetagOntology(ctx context.Context, oldOntology, newOntology string) error

	// ListOntologies returns every distinct ontology tag currently in use,
	// derived from concepts and documents rather than a separate registry
	// (spec §6 `GET /ontology`).
	ListOntologies(ctx context.Context) ([]model.Ontology, error)

	// DocumentsByOntology lists every document tagged with ontology (spec
	// §6 `GET /ontology/{name}/files`).
	DocumentsByOntology(ctx context.Context, ontology string) ([]model.Document, error)

	// DeleteOntology removes every concept, source, relationship, and
	// document tagged ontology in one transaction (spec §6 `DELETE
	// /ontology/{name}`, a destructive operation).
	DeleteOntology(ctx context.Context, ontology string) error

	// DeleteDocument removes one document and its sources/instances (spec
	// §6 `DELETE /documents/{id}`). It does not remove concepts, since a
	// concept may be backed by instances from other documents.
	DeleteDocument(ctx context.Context, id string) error

	// CreateInstance is idempotent on (ConceptID, SourceID): re-ingesting the
	// same chunk does not duplicate instances (spec §4.7).
	CreateInstance(ctx context.Context, inst model.Instance) error

	// UpsertRelationship creates the (from, to, type) edge if absent, or
	// appends evidenceSourceID to an existing edge's Evidence. evidenceSourceID
	// must be non-empty: the facade rejects relationships asserted without
	// backing evidence (spec §4.6's "reject unasserted writes").
	UpsertRelationship(ctx context.Context, fromID, toID, relType string, confidence float64, evidenceSourceID string) (model.Relationship, error)

	// RetypeEdges atomically re-types every edge of relType `from` to `to`,
	// merging confidence/evidence where both a `from`- and `to`-typed edge
	// already exist between the same pair. Implements vocabulary.EdgeRetyper.
	RetypeEdges(ctx context.Context, from, to string) (count int, err error)

	// Neighbors is a batched one-hop query over conceptIDs, never a
	// variable-length graph traversal (spec §4.6, §4.10).
	Neighbors(ctx context.Context, conceptIDs []string, edgeTypeFilter []string, direction Direction) (map[string][]NeighborEdge, error)

	// EdgesByType returns every relationship of the given type, used by
	// polarity axis discovery to scan candidate pole pairs (spec §4.11
	// supplemented feature). It is a bounded full scan of one type's edges,
	// not a traversal.
	EdgesByType(ctx context.Context, relType string) ([]model.Relationship, error)

	VectorSearch(ctx context.Context, embedding []float32, ontology string, topK int, threshold float64) ([]SearchHit, error)

	Stats(ctx context.Context) (Stats, error)
}

// validateNeighborBatch rejects unbounded fan-out, the safety rule of
// spec §4.6: neighbor queries are always over a bounded, caller-supplied
// set of concept ids.
func validateNeighborBatch(conceptIDs []string) error {
	if len(conceptIDs) == 0 {
		return apperr.Validation("neighbors: conceptIDs must not be empty")
	}
	if len(conceptIDs) > maxNeighborBatch {
		return apperr.Validation("neighbors: batch of %d exceeds the %d-id cap", len(conceptIDs), maxNeighborBatch)
	}
	return nil
}

func validateEvidence(evidenceSourceID string) error {
	if evidenceSourceID == "" {
		return apperr.Validation("relationship must be asserted with a backing source id")
	}
	return nil
}

func directionMatches(dir Direction, outgoing bool) bool {
	switch dir {
	case DirectionOut:
		return outgoing
	case DirectionIn:
		return !outgoing
	default:
		return true
	}
}

func edgeTypeAllowed(filter []string, relType string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range filter {
		if t == relType {
			return true
		}
	}
	return false
}

func hydrateSearch(ctx context.Context, store Store, matches []vectorindex.Match, threshold float64) ([]SearchHit, error) {
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < threshold {
			continue
		}
		c, ok, err := store.GetConcept(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("hydrate concept %s: %w", m.ID, err)
		}
		if !ok {
			continue // index and store momentarily diverged; skip rather than fail the whole search
		}
		hits = append(hits, SearchHit{Concept: c, Similarity: m.Similarity})
	}
	return hits, nil
}
