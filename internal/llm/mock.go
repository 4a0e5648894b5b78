package llm

import (
	"context"
	"sync"
	"time"
)

// MockResponse is a canned reply. A non-nil Err is returned instead of the text.
type MockResponse struct {
	Text string
	Err  error
}

// MockProvider replays canned responses in FIFO order and records every request.
// With the queue empty it fails as unavailable, which sends generators to their fallback.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
	// Delay blocks each call until it elapses or the context is done.
	Delay time.Duration
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	delay := m.Delay

	var (
		resp MockResponse
		ok   bool
	)
	if len(m.responses) > 0 {
		resp, ok = m.responses[0], true
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if !ok {
		return nil, &UnavailableError{}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{Text: resp.Text, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses = append(m.responses, resp)
}

func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.calls...)
}
