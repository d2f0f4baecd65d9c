// Package llmclient implements the structured-extraction contract of spec
// §4.2: given a chunk of text and the currently active vocabulary, a
// Provider returns the concepts, instances, and relationships the model
// found in it.
package llmclient

import "context"

// ExtractedConcept is a concept the model found in the chunk.
type ExtractedConcept struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	SearchTerms []string `json:"search_terms"`
}

// ExtractedInstance references a concept by label with its verbatim quote.
type ExtractedInstance struct {
	ConceptLabel string `json:"concept_label"`
	Quote        string `json:"quote"`
}

// ExtractedRelationship is a directed, typed edge between two concepts,
// referenced by label, emitted in the same result.
type ExtractedRelationship struct {
	FromLabel  string  `json:"from_label"`
	ToLabel    string  `json:"to_label"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ExtractionResult is the structured output of one chunk's extraction pass.
type ExtractionResult struct {
	Concepts      []ExtractedConcept      `json:"concepts"`
	Instances     []ExtractedInstance     `json:"instances"`
	Relationships []ExtractedRelationship `json:"relationships"`
}

// Usage reports token counts for cost accounting (spec §4.7 JobProgress).
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Request bundles a chunk's extraction inputs.
type Request struct {
	ChunkText        string
	ActiveVocabulary []string // currently active relationship type names
	Ontology         string
}

// Provider extracts structured knowledge-graph data from a single chunk.
type Provider interface {
	Extract(ctx context.Context, req Request) (ExtractionResult, Usage, error)
}

// Asker sends a single free-form prompt and returns the model's raw text
// reply. Both built-in providers implement it; it backs callers that need a
// short judgment call rather than a full extraction, such as the vocabulary
// consolidation adjudicator.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}
