package llmclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kgraph/kgraph/internal/apperr"
)

const systemPrompt = `You are a knowledge-graph extraction engine. Given a chunk of text and a
list of currently active relationship types, extract:
- concepts: distinct entities or ideas mentioned, each with a label, a one-sentence
  description, and a few search_terms (synonyms or alternate phrasings).
- instances: one per concept, with the exact verbatim quote from the chunk that
  mentions it (whitespace normalization is fine, but do not paraphrase).
- relationships: directed edges between two concepts you extracted, using one of
  the active relationship types if it fits, or a new lowercase_snake_case type
  name if none fits.

Respond with a single JSON object: {"concepts":[...],"instances":[...],"relationships":[...]}.
Every instance must reference a concept label present in "concepts". Every
relationship's from_label/to_label must reference concept labels present in
"concepts". Do not emit prose outside the JSON object.`

// BuildUserPrompt renders the chunk and active vocabulary into the user
// message sent to the model.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	if req.Ontology != "" {
		fmt.Fprintf(&b, "Ontology: %s\n\n", req.Ontology)
	}
	if len(req.ActiveVocabulary) > 0 {
		fmt.Fprintf(&b, "Active relationship types: %s\n\n", strings.Join(req.ActiveVocabulary, ", "))
	}
	b.WriteString("Chunk:\n")
	b.WriteString(req.ChunkText)
	return b.String()
}

// ParseExtractionResult decodes and validates the model's JSON response
// against the invariants of spec §4.2: every instance and relationship must
// reference a concept emitted in the same result, and quotes must be
// (whitespace-normalized) verbatim substrings of the chunk.
func ParseExtractionResult(raw string, chunkText string) (ExtractionResult, error) {
	raw = extractJSONObject(raw)

	var res ExtractionResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return ExtractionResult{}, apperr.Provider(err, "malformed extraction response")
	}

	labels := make(map[string]bool, len(res.Concepts))
	for _, c := range res.Concepts {
		if strings.TrimSpace(c.Label) == "" {
			return ExtractionResult{}, apperr.Provider(nil, "concept with empty label")
		}
		labels[c.Label] = true
	}

	normChunk := normalizeWhitespace(chunkText)
	for _, inst := range res.Instances {
		if !labels[inst.ConceptLabel] {
			return ExtractionResult{}, apperr.Provider(nil, "instance references unknown concept %q", inst.ConceptLabel)
		}
		if !strings.Contains(normChunk, normalizeWhitespace(inst.Quote)) {
			return ExtractionResult{}, apperr.Provider(nil, "instance quote is not a verbatim substring of the chunk")
		}
	}

	for _, rel := range res.Relationships {
		if !labels[rel.FromLabel] || !labels[rel.ToLabel] {
			return ExtractionResult{}, apperr.Provider(nil, "relationship references unknown concept")
		}
	}

	return res, nil
}

// extractJSONObject trims any leading/trailing prose around the first
// top-level JSON object in s, tolerating models that ignore instructions
// not to include commentary.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
