package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage/internal/tracker"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, "both", cfg.SearchState)
	assert.Equal(t, 2*time.Minute, cfg.AnalysisTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, true},
		{"excessive max results", func(c *Config) { c.MaxResults = 500 }, true},
		{"bad search state", func(c *Config) { c.SearchState = "resolved" }, true},
		{"open state", func(c *Config) { c.SearchState = "open" }, false},
		{"bad repository", func(c *Config) { c.Repositories = []string{"not a scope"} }, true},
		{"good repository", func(c *Config) { c.Repositories = []string{"acme/app"} }, false},
		{"zero ai concurrency", func(c *Config) { c.MaxConcurrentAICalls = 0 }, true},
		{"zero timeout", func(c *Config) { c.AnalysisTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestState(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, tracker.StateBoth, cfg.State())
	cfg.SearchState = "open"
	assert.Equal(t, tracker.StateOpen, cfg.State())
	cfg.SearchState = "closed"
	assert.Equal(t, tracker.StateClosed, cfg.State())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracker_token: file-token
repositories:
  - acme/app
  - acme/web
max_results: 25
search_state: open
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.TrackerToken)
	assert.Equal(t, []string{"acme/app", "acme/web"}, cfg.Repositories)
	assert.Equal(t, 25, cfg.MaxResults)
	assert.Equal(t, "open", cfg.SearchState)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxResults, cfg.MaxResults)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_results: 25\ntracker_token: file-token\n"), 0o644))

	t.Setenv("TRIAGE_MAX_RESULTS", "5")
	t.Setenv("TRIAGE_TRACKER_TOKEN", "env-token")
	t.Setenv("TRIAGE_REPOSITORIES", "acme/app, acme/web")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, "env-token", cfg.TrackerToken)
	assert.Equal(t, []string{"acme/app", "acme/web"}, cfg.Repositories)
}

func TestEnvInvalidValue(t *testing.T) {
	t.Setenv("TRIAGE_MAX_RESULTS", "lots")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIAGE_MAX_RESULTS")
}

func TestAnthropicKeyFallback(t *testing.T) {
	t.Setenv("TRIAGE_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.AnthropicAPIKey)
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrackerToken = "ghp_secret"
	cfg.AnthropicAPIKey = "sk-secret"

	s := cfg.String()
	assert.NotContains(t, s, "ghp_secret")
	assert.NotContains(t, s, "sk-secret")
	assert.Contains(t, s, "***")
}
