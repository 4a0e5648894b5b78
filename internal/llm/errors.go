package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned by NewProvider when no backend is selected or its key is missing.
var ErrNotConfigured = errors.New("llm: no provider configured")

// RateLimitError is a 429 from the provider.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// UnavailableError covers transport failures and 5xx responses.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "llm: provider unavailable"
	}
	return fmt.Sprintf("llm: provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RequestError is a 4xx other than 429. Retrying it won't help.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("llm: request rejected with status %d: %v", e.StatusCode, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// EmptyResponseError means the provider answered without any text.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("llm: empty response from %s", e.Provider)
}

// classifyStatus maps an HTTP status returned by an SDK to one of the error types above.
func classifyStatus(status int, err error) error {
	switch {
	case status == 429:
		return &RateLimitError{Err: err}
	case status >= 400 && status < 500:
		return &RequestError{StatusCode: status, Err: err}
	default:
		return &UnavailableError{Err: err}
	}
}
