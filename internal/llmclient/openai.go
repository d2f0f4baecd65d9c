package llmclient

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/kgraph/kgraph/internal/config"
)

// OpenAIProvider extracts knowledge-graph data using an OpenAI-compatible
// chat completions endpoint.
type OpenAIProvider struct {
	sdk         sdk.Client
	model       string
	maxAttempts int
}

// NewOpenAIProvider builds a Provider backed by the OpenAI Chat Completions API.
func NewOpenAIProvider(cfg config.LLMConfig, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.OpenAIAPIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.OpenAIBaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = sdk.ChatModelGPT4o
	}
	return &OpenAIProvider{
		sdk:         sdk.NewClient(opts...),
		model:       model,
		maxAttempts: DefaultMaxAttempts,
	}
}

// Ask sends a single free-form prompt and returns the model's raw text
// reply, used by callers that need a short judgment call rather than a
// full structured extraction (e.g. the vocabulary consolidation adjudicator).
func (p *OpenAIProvider) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := p.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model: p.model,
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Extract(ctx context.Context, req Request) (ExtractionResult, Usage, error) {
	return withRetry(ctx, p.maxAttempts, func() (ExtractionResult, Usage, error) {
		resp, err := p.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
			Model: p.model,
			Messages: []sdk.ChatCompletionMessageParamUnion{
				sdk.SystemMessage(systemPrompt),
				sdk.UserMessage(BuildUserPrompt(req)),
			},
			ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
			},
		})
		if err != nil {
			return ExtractionResult{}, Usage{}, &RetryableError{Err: err}
		}
		if len(resp.Choices) == 0 {
			return ExtractionResult{}, Usage{}, &RetryableError{Err: errEmptyResponse}
		}

		result, err := ParseExtractionResult(resp.Choices[0].Message.Content, req.ChunkText)
		if err != nil {
			return ExtractionResult{}, Usage{}, err
		}
		return result, Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}, nil
	})
}

var errEmptyResponse = errNoChoices{}

type errNoChoices struct{}

func (errNoChoices) Error() string { return "provider returned no choices" }
