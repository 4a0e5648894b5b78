package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maahivarma/Exam-portal/internal/llm"
)

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestWithRetry(t *testing.T) {
	tests := map[string]struct {
		responses []llm.MockResponse
		wantCalls int
		wantErr   bool
	}{
		"should not retry a success": {
			responses: []llm.MockResponse{{Text: "ok"}},
			wantCalls: 1,
		},
		"should retry an unavailable provider": {
			responses: []llm.MockResponse{
				{Err: &llm.UnavailableError{Err: errors.New("down")}},
				{Text: "ok"},
			},
			wantCalls: 2,
		},
		"should retry a rate limit": {
			responses: []llm.MockResponse{
				{Err: &llm.RateLimitError{RetryAfter: time.Millisecond}},
				{Text: "ok"},
			},
			wantCalls: 2,
		},
		"should give up after max attempts": {
			responses: []llm.MockResponse{
				{Err: &llm.UnavailableError{}},
				{Err: &llm.UnavailableError{}},
				{Err: &llm.UnavailableError{}},
				{Text: "never reached"},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		"should not retry a rejected request": {
			responses: []llm.MockResponse{
				{Err: &llm.RequestError{StatusCode: 400}},
				{Text: "ok"},
			},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			mock := llm.NewMockProvider(tt.responses...)
			p := llm.WithRetry(mock, fastRetry())

			resp, err := p.Generate(context.Background(), llm.UserPrompt("", "x"))
			assert.Len(t, mock.Calls(), tt.wantCalls)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", resp.Text)
		})
	}
}

func TestWithRetry_StopsOnContextDone(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.UnavailableError{}}, llm.MockResponse{Text: "ok"})
	p := llm.WithRetry(mock, llm.RetryConfig{MaxAttempts: 3, InitialWait: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, llm.UserPrompt("", "x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, mock.Calls(), 1)
}

func TestNewProvider(t *testing.T) {
	_, err := llm.NewProvider(context.Background(), llm.Config{})
	require.ErrorIs(t, err, llm.ErrNotConfigured)

	_, err = llm.NewProvider(context.Background(), llm.Config{Provider: "openai"})
	require.ErrorIs(t, err, llm.ErrNotConfigured)

	c := llm.DefaultConfig()
	c.Provider = "mock"
	p, err := llm.NewProvider(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	c.Provider = "openai"
	c.OpenAI.APIKey = "k"
	p, err = llm.NewProvider(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
}
