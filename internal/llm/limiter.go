package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aptitude-service/internal/logger"
	"aptitude-service/internal/metrics"

	"golang.org/x/sync/semaphore"
)

type LimiterConfig struct {
	MaxConcurrency int64
	Timeout        time.Duration
	// Defaults fill zero-valued fields of per-call Options.
	Defaults Options
}

// LimitedGenerator bounds concurrent model calls and applies a per-call timeout.
type LimitedGenerator struct {
	next     Generator
	provider string
	sem      *semaphore.Weighted
	timeout  time.Duration
	defaults Options
}

func NewLimitedGenerator(next Generator, provider string, cfg LimiterConfig) *LimitedGenerator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &LimitedGenerator{
		next:     next,
		provider: provider,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrency),
		timeout:  cfg.Timeout,
		defaults: cfg.Defaults,
	}
}

func (l *LimitedGenerator) Provider() string {
	return l.provider
}

func (l *LimitedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		metrics.LLMRequests.WithLabelValues(l.provider, "rejected").Inc()
		return "", fmt.Errorf("waiting for model slot: %w", err)
	}
	defer l.sem.Release(1)

	metrics.LLMInFlight.Inc()
	defer metrics.LLMInFlight.Dec()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if opts.MaxTokens == 0 {
		opts.MaxTokens = l.defaults.MaxTokens
	}
	if opts.TopP == 0 {
		opts.TopP = l.defaults.TopP
	}
	if opts.Temperature == 0 {
		opts.Temperature = l.defaults.Temperature
	}

	start := time.Now()
	text, err := l.next.Generate(ctx, prompt, opts)
	metrics.LLMDuration.WithLabelValues(l.provider).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.LLMRequests.WithLabelValues(l.provider, "success").Inc()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.LLMRequests.WithLabelValues(l.provider, "timeout").Inc()
		logger.Warn("%s call timed out after %s", l.provider, time.Since(start))
		return "", fmt.Errorf("model call timed out: %w", err)
	default:
		metrics.LLMRequests.WithLabelValues(l.provider, "error").Inc()
	}
	return text, err
}
