package embedclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/observability"
)

// HTTPClient embeds text and images against an OpenAI-compatible
// /v1/embeddings endpoint, which covers both hosted OpenAI and self-hosted
// embedding servers (e.g. text-embeddings-inference, llama.cpp server).
type HTTPClient struct {
	httpClient *http.Client
	host       string
	model      string
	dimensions int
}

// New builds an HTTPClient from the embedding configuration.
func New(cfg config.EmbeddingConfig, base *http.Client) *HTTPClient {
	if base == nil {
		base = observability.NewHTTPClient(nil)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &HTTPClient{
		httpClient: observability.WithHeaders(base, headers),
		host:       strings.TrimSuffix(cfg.Host, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (c *HTTPClient) Dimensions() int { return c.dimensions }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *HTTPClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTextBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *HTTPClient) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Provider(err, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apperr.Provider(fmt.Errorf("status %d", resp.StatusCode), "embedding provider returned an error")
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Provider(err, "malformed embeddings response")
	}
	if len(parsed.Data) != len(texts) {
		return nil, apperr.Provider(nil, "embedding provider returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if c.dimensions > 0 && len(v) != c.dimensions {
			return nil, apperr.Consistency(nil, "embedding %d has dimension %d, expected %d", i, len(v), c.dimensions)
		}
	}
	return out, nil
}

// EmbedImage encodes image bytes as a data URL and sends it through the same
// embeddings endpoint; providers without multimodal embedding support reject
// it with a provider error, which the caller surfaces to the job's error log.
func (c *HTTPClient) EmbedImage(ctx context.Context, data []byte, mimeType string) ([]float32, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return c.EmbedText(ctx, dataURL)
}
