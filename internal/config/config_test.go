package config

import (
	"testing"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MENTHA_API_URL", "https://api.mentha.test/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.mentha.test", cfg.APIBaseURL)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, providers.IDs(), cfg.Providers)
	assert.Equal(t, "none", cfg.StorageBackend)
	assert.Equal(t, 4, cfg.WatchConcurrency)
	assert.Equal(t, 40, cfg.VisibilityAlertThreshold)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MENTHA_API_URL", "http://localhost:9000")
	t.Setenv("MENTHA_PROVIDERS", "gemini, openai")
	t.Setenv("MENTHA_COMPETITORS", "Globex, Initech ,")
	t.Setenv("MENTHA_REQUEST_TIMEOUT", "45")
	t.Setenv("STORAGE_BACKEND", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []providers.ID{providers.Gemini, providers.OpenAI}, cfg.Providers)
	assert.Equal(t, []string{"Globex", "Initech"}, cfg.Competitors)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Relative API URL", env: map[string]string{"MENTHA_API_URL": "api.mentha.test"}},
		{name: "Unknown provider", env: map[string]string{"MENTHA_PROVIDERS": "openai,bard"}},
		{name: "Azure without account", env: map[string]string{"STORAGE_BACKEND": "azure"}},
		{name: "Unknown backend", env: map[string]string{"STORAGE_BACKEND": "s3"}},
		{name: "Email without SMTP", env: map[string]string{"NOTIFICATION_EMAIL": "team@mentha.test"}},
		{name: "Threshold out of range", env: map[string]string{"VISIBILITY_ALERT_THRESHOLD": "140"}},
		{name: "Negative retention", env: map[string]string{"REPORT_RETENTION": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDisplayBrand(t *testing.T) {
	cfg := &Config{BrandID: "b-1"}
	assert.Equal(t, "b-1", cfg.DisplayBrand())
	assert.Error(t, (&Config{}).RequireBrand())

	cfg.BrandName = "Acme"
	assert.Equal(t, "Acme", cfg.DisplayBrand())
	assert.NoError(t, cfg.RequireBrand())
}
