package embedclient

import (
	"context"
	"hash/fnv"
)

// DeterministicClient produces stable pseudo-random vectors from a hash of
// the input text, for tests and for the in-memory ingestion path that
// doesn't call out to a real embedding provider.
type DeterministicClient struct {
	dims int
}

// NewDeterministic builds a DeterministicClient with the given dimension.
func NewDeterministic(dims int) *DeterministicClient {
	if dims <= 0 {
		dims = 8
	}
	return &DeterministicClient{dims: dims}
}

func (d *DeterministicClient) Dimensions() int { return d.dims }

func (d *DeterministicClient) EmbedText(_ context.Context, text string) ([]float32, error) {
	return vectorFromSeed(text, d.dims), nil
}

func (d *DeterministicClient) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFromSeed(t, d.dims)
	}
	return out, nil
}

func (d *DeterministicClient) EmbedImage(_ context.Context, data []byte, _ string) ([]float32, error) {
	return vectorFromSeed(string(data), d.dims), nil
}

func vectorFromSeed(seed string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	state := h.Sum64()

	out := make([]float32, dims)
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = float32(int64(state>>11)%1000) / 1000.0
	}
	return out
}
