package llmclient

import (
	"testing"

	"github.com/kgraph/kgraph/internal/config"
)

func TestNew_SelectsProviderByConfig(t *testing.T) {
	cases := []struct {
		provider string
		want     any
	}{
		{"anthropic", &AnthropicProvider{}},
		{"", &AnthropicProvider{}},
		{"openai", &OpenAIProvider{}},
	}
	for _, tc := range cases {
		p, err := New(config.LLMConfig{Provider: tc.provider}, nil)
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", tc.provider, err)
		}
		switch tc.want.(type) {
		case *AnthropicProvider:
			if _, ok := p.(*AnthropicProvider); !ok {
				t.Errorf("provider %q: expected AnthropicProvider, got %T", tc.provider, p)
			}
		case *OpenAIProvider:
			if _, ok := p.(*OpenAIProvider); !ok {
				t.Errorf("provider %q: expected OpenAIProvider, got %T", tc.provider, p)
			}
		}
	}
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	if _, err := New(config.LLMConfig{Provider: "bogus"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
