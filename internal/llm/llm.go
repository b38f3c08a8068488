package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aptitude-service/internal/config"
	"aptitude-service/internal/models"
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNotConfigured = errors.New("model provider is not configured")
)

// Options tune a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

const AnalysisTemperature = 0.3

// TemperatureFor maps a difficulty to the sampling temperature.
func TemperatureFor(difficulty string) float64 {
	switch difficulty {
	case models.DifficultyHard:
		return 0.8
	case models.DifficultyEasy:
		return 0.5
	default:
		return 0.7
	}
}

// New builds the configured provider client wrapped in a concurrency limiter.
func New(cfg config.LLMConfig) (*LimitedGenerator, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout + 5*time.Second}

	var (
		gen      Generator
		provider = strings.ToLower(cfg.Provider)
	)
	switch provider {
	case "gemini", "google":
		provider = "gemini"
		gen = NewGeminiClient(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "openai", "ollama", "openai-compatible":
		gen = NewOpenAIClient(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}

	return NewLimitedGenerator(gen, provider, LimiterConfig{
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.Timeout,
		Defaults:       Options{MaxTokens: cfg.MaxTokens, TopP: cfg.TopP},
	}), nil
}
