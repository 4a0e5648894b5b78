package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_request_duration_seconds",
		Help:    "Latency of LLM provider calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider", "outcome"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Tokens consumed by LLM provider calls.",
	}, []string{"provider", "direction"})
)

type loggingProvider struct {
	inner Provider
	name  string
}

// WithLogging logs every call at debug level (errors at warn) and records latency and token metrics.
func WithLogging(p Provider, name string) Provider {
	return &loggingProvider{inner: p, name: name}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestDuration.WithLabelValues(l.name, outcome).Observe(elapsed.Seconds())

	if err != nil {
		slog.WarnContext(ctx, "llm: generate failed",
			"provider", l.name,
			"model", l.inner.ModelID(),
			"latency", elapsed,
			"error", err,
		)
		return nil, err
	}

	tokensTotal.WithLabelValues(l.name, "input").Add(float64(resp.Usage.InputTokens))
	tokensTotal.WithLabelValues(l.name, "output").Add(float64(resp.Usage.OutputTokens))

	slog.DebugContext(ctx, "llm: generate succeeded",
		"provider", l.name,
		"model", resp.Model,
		"latency", elapsed,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	return resp, nil
}

func (l *loggingProvider) ModelID() string {
	return l.inner.ModelID()
}
