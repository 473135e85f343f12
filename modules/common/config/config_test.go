package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEYS", "")
	t.Setenv("REDIS_HOST", "")

	cfg := FromEnv()
	require.NoError(t, cfg.validate())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4, cfg.DefaultNumImages)
	assert.Equal(t, "16:9", cfg.AspectRatio)
	assert.Equal(t, BackendGemini, cfg.AnalysisBackend)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, "en", cfg.TranscriptLanguage)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.ImageBackendConfigured())
}

func TestFromEnvKeyRotationFallsBackToSingleKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GEMINI_API_KEYS", "")

	cfg := FromEnv()
	assert.Equal(t, []string{"primary"}, cfg.GeminiAPIKeys)
	assert.True(t, cfg.ImageBackendConfigured())

	t.Setenv("GEMINI_API_KEYS", "a, b ,,c")
	cfg = FromEnv()
	assert.Equal(t, []string{"a", "b", "c"}, cfg.GeminiAPIKeys)
}

func TestFromEnvInvalidValuesUseDefaults(t *testing.T) {
	t.Setenv("DEFAULT_NUM_IMAGES", "many")
	t.Setenv("SYNTHESIS_TIMEOUT", "soon")
	t.Setenv("SYNTHESIS_FANOUT", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 4, cfg.DefaultNumImages)
	assert.Equal(t, 120*time.Second, cfg.SynthesisTimeout)
	assert.False(t, cfg.SynthesisFanout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"default above max", func(c *Config) { c.DefaultNumImages = 9 }},
		{"zero max", func(c *Config) { c.MaxNumImages = 0 }},
		{"unknown analysis backend", func(c *Config) { c.AnalysisBackend = "claude" }},
		{"unknown image backend", func(c *Config) { c.ImageBackend = "flux" }},
		{"unknown output format", func(c *Config) { c.OutputFormat = "gif" }},
		{"zero rate", func(c *Config) { c.SynthesisRatePerMin = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestImageBackendNoneIsNotConfigured(t *testing.T) {
	cfg := FromEnv()
	cfg.GeminiAPIKey = "key"
	cfg.ImageBackend = BackendNone
	assert.False(t, cfg.ImageBackendConfigured())
}

func TestFromEnvTranscriptLanguage(t *testing.T) {
	t.Setenv("TRANSCRIPT_LANGUAGE", "en-GB")

	assert.Equal(t, "en-GB", FromEnv().TranscriptLanguage)
}
