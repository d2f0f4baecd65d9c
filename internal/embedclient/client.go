// Package embedclient implements the embedding contract of spec §4.3:
// embed_text, embed_text_batch, and embed_image against a single active
// embedding configuration whose dimension is fixed for the process.
package embedclient

import "context"

// Client embeds text and images into fixed-dimension vectors.
type Client interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedImage(ctx context.Context, data []byte, mimeType string) ([]float32, error)
	Dimensions() int
}
