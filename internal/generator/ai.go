package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/llm"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 4000
	defaultTemperature = 0.7
)

var (
	errMalformed = errors.New("malformed response")
	errSchema    = errors.New("schema violation")
	errEmpty     = errors.New("no questions in response")
)

var fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "generator_fallback_total",
	Help: "Generation requests served from templates, by reason.",
}, []string{"reason"})

const systemPrompt = "You are an expert technical interviewer. Generate realistic, practical interview questions."

const userPrompt = `Generate %d high-quality interview questions about %s programming language/technology.

Requirements:
- Mix of Multiple Choice Questions (MCQ) and Subjective questions
- Questions should be realistic and commonly asked in technical interviews
- Difficulty level: %s
- For MCQ: Provide 4 options with exactly one correct answer
- For Subjective: Provide a clear, concise answer
- Questions should test practical knowledge, not just theory

Format the response as a JSON array where each item matches this JSON Schema:
%s

Return ONLY valid JSON, no additional text.`

type Config struct {
	// Provider is the LLM backend. Nil makes New return the template fallback alone.
	Provider    llm.Provider
	Fallback    *Fallback
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// AI asks an LLM for drafts and falls back to templates on any failure.
type AI struct {
	provider    llm.Provider
	fallback    *Fallback
	timeout     time.Duration
	maxTokens   int
	temperature float64
}

// New returns the AI strategy when a provider is configured and the template fallback otherwise.
func New(c Config) Generator {
	if c.Fallback == nil {
		c.Fallback = mustDefaultFallback()
	}
	if c.Provider == nil {
		return c.Fallback
	}

	a := &AI{
		provider:    c.Provider,
		fallback:    c.Fallback,
		timeout:     c.Timeout,
		maxTokens:   c.MaxTokens,
		temperature: c.Temperature,
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	if a.temperature <= 0 {
		a.temperature = defaultTemperature
	}

	return a
}

func (a *AI) Generate(ctx context.Context, req Request) []domain.Draft {
	if req.Count <= 0 {
		return nil
	}

	drafts, err := a.generate(ctx, req)
	if err != nil {
		reason := fallbackReason(err)
		fallbackTotal.WithLabelValues(reason).Inc()
		slog.WarnContext(ctx, "generator: falling back to templates",
			"topic", req.Topic,
			"count", req.Count,
			"reason", reason,
			"error", err,
		)
		return a.fallback.Generate(ctx, req)
	}

	if len(drafts) > req.Count {
		drafts = drafts[:req.Count]
	}

	if n := len(drafts); n < req.Count {
		slog.InfoContext(ctx, "generator: padding short AI response with templates",
			"topic", req.Topic,
			"got", n,
			"want", req.Count,
		)
		drafts = append(drafts, a.fallback.Generate(ctx, req)[n:]...)
	}

	return drafts
}

func (a *AI) generate(ctx context.Context, req Request) ([]domain.Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	r := llm.UserPrompt(systemPrompt, fmt.Sprintf(userPrompt, req.Count, req.Topic, req.Difficulty, draftSchema))
	r.MaxTokens = a.maxTokens
	r.Temperature = a.temperature

	resp, err := a.provider.Generate(ctx, r)
	if err != nil {
		return nil, err
	}

	drafts, err := parseDrafts(resp.Text, req.Difficulty)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, errEmpty
	}

	return drafts, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errMalformed):
		return "malformed"
	case errors.Is(err, errSchema):
		return "schema"
	case errors.Is(err, errEmpty):
		return "empty"
	default:
		return "provider_error"
	}
}
