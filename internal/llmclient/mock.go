package llmclient

import "context"

// MockProvider is a deterministic, in-memory Provider for tests and for the
// in-memory ingestion path exercised without network access.
type MockProvider struct {
	// Respond is called per request; tests set this to control output.
	Respond func(req Request) (ExtractionResult, Usage, error)
}

func (m *MockProvider) Extract(ctx context.Context, req Request) (ExtractionResult, Usage, error) {
	if m.Respond == nil {
		return ExtractionResult{}, Usage{}, nil
	}
	return m.Respond(req)
}
