// Package llm is a thin, provider neutral client for chat style text generation.
// Backends (OpenAI, Anthropic, Gemini) are selected from configuration and
// decorated with retries, logging and metrics.
package llm

import "context"

// Provider sends one chat request and returns the text of the reply.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt is the common single turn request.
func UserPrompt(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

type Response struct {
	Text  string
	Model string
	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
	Usage      Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
