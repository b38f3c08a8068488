package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 1800, cfg.Book.ChunkSize)
	assert.Equal(t, 100, cfg.Book.MinChunkSize)
	assert.Equal(t, 1000, cfg.Book.MaxChunks)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "900")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	assert.Equal(t, 900, cfg.Book.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestGetEnvHelpersFallBackOnParseErrors(t *testing.T) {
	t.Setenv("BAD_INT", "twelve")
	t.Setenv("BAD_BOOL", "maybe")
	t.Setenv("BAD_DURATION", "soon")
	t.Setenv("BAD_FLOAT", "x")

	assert.Equal(t, 7, getEnvAsInt("BAD_INT", 7))
	assert.True(t, getEnvAsBool("BAD_BOOL", true))
	assert.Equal(t, time.Minute, getEnvAsDuration("BAD_DURATION", time.Minute))
	assert.Equal(t, 0.5, getEnvAsFloat("BAD_FLOAT", 0.5))
}

func TestGenerationWriteTimeoutCoversWorstCase(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int64
		timeout     time.Duration
		want        time.Duration
	}{
		// 2*13 generation rounds + 3 analysis rounds.
		{"defaults", 4, time.Minute, 29*time.Minute + writeTimeoutSlack},
		{"serial", 1, time.Second, 110*time.Second + writeTimeoutSlack},
		{"unset concurrency is serial", 0, time.Second, 110*time.Second + writeTimeoutSlack},
		{"wide", 50, 10 * time.Second, 30*time.Second + writeTimeoutSlack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerationWriteTimeout(LLMConfig{MaxConcurrency: tt.concurrency, Timeout: tt.timeout})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteTimeoutDefaultsToGenerationBudget(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "60s")
	t.Setenv("LLM_MAX_CONCURRENCY", "4")

	cfg := Load()
	assert.Equal(t, GenerationWriteTimeout(cfg.LLM), cfg.Server.WriteTimeout)
	assert.Greater(t, cfg.Server.WriteTimeout, 13*time.Minute)

	t.Setenv("WRITE_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, Load().Server.WriteTimeout)
}
