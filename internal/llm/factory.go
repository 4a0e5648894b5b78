package llm

import (
	"context"
	"fmt"
)

// NewProvider builds the configured backend wrapped as caller → retry → logging → backend.
// It returns ErrNotConfigured when Config.Enabled is false.
func NewProvider(ctx context.Context, c Config) (Provider, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	var (
		base Provider
		err  error
	)

	switch c.Provider {
	case "openai":
		base, err = NewOpenAIProvider(c.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(c.Anthropic)
	case "gemini":
		base, err = NewGeminiProvider(ctx, c.Gemini)
	case "mock":
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("llm: init %s provider: %w", c.Provider, err)
	}

	p := WithLogging(base, c.Provider)
	if c.Retry.MaxAttempts > 1 {
		p = WithRetry(p, c.Retry)
	}

	return p, nil
}

// resolveModel maps a short model alias to the provider's model id. Unknown names are used as is.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
