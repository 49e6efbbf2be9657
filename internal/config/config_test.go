package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PRIMARY_API_KEY", "primary-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "openai/gpt-oss-20b:free", cfg.PrimaryModel)
	assert.Equal(t, "mistralai/mistral-7b-instruct:free", cfg.FallbackModel)
	assert.Equal(t, "primary-key", cfg.FallbackAPIKey)
	assert.Equal(t, 60*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.DigestSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PRIMARY_API_KEY", "primary-key")
	t.Setenv("FALLBACK_API_KEY", "fallback-key")
	t.Setenv("INFERENCE_TIMEOUT_SECONDS", "15")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fallback-key", cfg.FallbackAPIKey)
	assert.Equal(t, 15*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.Debug)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("PRIMARY_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			PrimaryAPIKey:    "k",
			PrimaryModel:     "p",
			FallbackModel:    "f",
			InferenceTimeout: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Bad schedule", mutate: func(c *Config) { c.DigestSchedule = "hourly" }, wantErr: true},
		{name: "Digest without channel", mutate: func(c *Config) { c.DigestSchedule = "daily" }, wantErr: true},
		{
			name: "Digest with Teams",
			mutate: func(c *Config) {
				c.DigestSchedule = "weekly"
				c.TeamsWebhookURL = "http://hook"
			},
		},
		{name: "Email without SMTP", mutate: func(c *Config) { c.NotificationEmail = "me@example.com" }, wantErr: true},
		{name: "Zero timeout", mutate: func(c *Config) { c.InferenceTimeout = 0 }, wantErr: true},
		{name: "Empty fallback model", mutate: func(c *Config) { c.FallbackModel = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
