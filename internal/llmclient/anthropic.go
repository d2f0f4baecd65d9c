package llmclient

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kgraph/kgraph/internal/config"
)

// AnthropicProvider extracts knowledge-graph data using Claude.
type AnthropicProvider struct {
	sdk         anthropic.Client
	model       string
	maxAttempts int
}

// NewAnthropicProvider builds a Provider backed by the Anthropic Messages API.
func NewAnthropicProvider(cfg config.LLMConfig, httpClient *http.Client) *AnthropicProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.AnthropicAPIKey)),
		option.WithHTTPClient(httpClient),
	}
	model := strings.TrimSpace(cfg.AnthropicModel)
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5)
	}
	return &AnthropicProvider{
		sdk:         anthropic.NewClient(opts...),
		model:       model,
		maxAttempts: DefaultMaxAttempts,
	}
}

// Ask sends a single free-form prompt and returns the model's raw text
// reply, used by callers that need a short judgment call rather than a
// full structured extraction (e.g. the vocabulary consolidation adjudicator).
func (p *AnthropicProvider) Ask(ctx context.Context, prompt string) (string, error) {
	msg, err := p.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (p *AnthropicProvider) Extract(ctx context.Context, req Request) (ExtractionResult, Usage, error) {
	return withRetry(ctx, p.maxAttempts, func() (ExtractionResult, Usage, error) {
		msg, err := p.sdk.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: 4096,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(BuildUserPrompt(req))),
			},
		})
		if err != nil {
			return ExtractionResult{}, Usage{}, &RetryableError{Err: err}
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}

		result, err := ParseExtractionResult(text.String(), req.ChunkText)
		if err != nil {
			return ExtractionResult{}, Usage{}, err
		}
		return result, Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		}, nil
	})
}
