package llmclient

import (
	"fmt"
	"net/http"

	"github.com/kgraph/kgraph/internal/config"
)

// New selects and constructs the configured Provider.
func New(cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return NewAnthropicProvider(cfg, httpClient), nil
	case "openai":
		return NewOpenAIProvider(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
