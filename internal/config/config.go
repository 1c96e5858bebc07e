// Package config assembles the triage configuration from defaults, an
// optional YAML file, and TRIAGE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/supportops/triage/internal/tracker"
)

// Config holds everything the triage commands need.
type Config struct {
	// HelpdeskToken authenticates against the helpdesk conversation API.
	HelpdeskToken string `yaml:"helpdesk_token"`

	// HelpdeskBaseURL overrides the helpdesk API endpoint (mainly for tests).
	HelpdeskBaseURL string `yaml:"helpdesk_base_url"`

	// TrackerToken authenticates against the issue tracker.
	TrackerToken string `yaml:"tracker_token"`

	// TrackerBaseURL overrides the tracker API endpoint (mainly for tests).
	TrackerBaseURL string `yaml:"tracker_base_url"`

	// Repositories are the owner/name scopes searched for duplicates.
	Repositories []string `yaml:"repositories"`

	// AnthropicAPIKey enables the Anthropic judge. When empty and
	// UseLocalEngine is false, AI features degrade to lexical scoring.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Model overrides the Anthropic model.
	Model string `yaml:"model"`

	// UseLocalEngine switches the judge to a local Ollama-compatible server.
	UseLocalEngine bool `yaml:"use_local_engine"`

	// LocalEngineURL is the local engine endpoint (default: http://localhost:11434).
	LocalEngineURL string `yaml:"local_engine_url"`

	// LocalEngineModel is the local model name (default: llama3.2).
	LocalEngineModel string `yaml:"local_engine_model"`

	// MaxResults truncates ranked analysis output (default: 10).
	MaxResults int `yaml:"max_results"`

	// SearchState restricts candidate search: "open", "closed", or "both".
	SearchState string `yaml:"search_state"`

	// SearchLabel optionally restricts candidate search by label.
	SearchLabel string `yaml:"search_label"`

	// MaxConcurrentSearches bounds the search fan-out (default: 3).
	MaxConcurrentSearches int `yaml:"max_concurrent_searches"`

	// MaxConcurrentScores bounds the scoring fan-out (default: 4).
	MaxConcurrentScores int `yaml:"max_concurrent_scores"`

	// MaxConcurrentAICalls bounds in-flight judge calls (default: 3).
	MaxConcurrentAICalls int `yaml:"max_concurrent_ai_calls"`

	// AnalysisTimeout bounds one full analysis run (default: 2 minutes).
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
}

// DefaultConfig returns the default triage configuration
func DefaultConfig() Config {
	return Config{
		MaxResults:            10,
		SearchState:           "both",
		MaxConcurrentSearches: 3,
		MaxConcurrentScores:   4,
		MaxConcurrentAICalls:  3,
		AnalysisTimeout:       2 * time.Minute,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive (got %d)", c.MaxResults)
	}
	if c.MaxResults > 100 {
		return fmt.Errorf("max_results too large (got %d, max 100)", c.MaxResults)
	}
	switch c.SearchState {
	case "open", "closed", "both":
	default:
		return fmt.Errorf("search_state must be open, closed, or both (got %q)", c.SearchState)
	}
	if c.MaxConcurrentSearches <= 0 {
		return fmt.Errorf("max_concurrent_searches must be positive (got %d)", c.MaxConcurrentSearches)
	}
	if c.MaxConcurrentScores <= 0 {
		return fmt.Errorf("max_concurrent_scores must be positive (got %d)", c.MaxConcurrentScores)
	}
	if c.MaxConcurrentAICalls <= 0 {
		return fmt.Errorf("max_concurrent_ai_calls must be positive (got %d)", c.MaxConcurrentAICalls)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("analysis_timeout must be positive (got %v)", c.AnalysisTimeout)
	}
	for _, repo := range c.Repositories {
		if err := tracker.ValidateRepoScope(repo); err != nil {
			return fmt.Errorf("invalid repository %q: %w", repo, err)
		}
	}
	return nil
}

// State converts the configured search state string to a tracker filter.
func (c Config) State() tracker.StateFilter {
	switch c.SearchState {
	case "open":
		return tracker.StateOpen
	case "closed":
		return tracker.StateClosed
	default:
		return tracker.StateBoth
	}
}

// String returns a printable form with secrets redacted.
func (c Config) String() string {
	return fmt.Sprintf("Config{repos=%v, max_results=%d, state=%s, local_engine=%v, helpdesk_token=%s, tracker_token=%s, anthropic_key=%s}",
		c.Repositories, c.MaxResults, c.SearchState, c.UseLocalEngine,
		redact(c.HelpdeskToken), redact(c.TrackerToken), redact(c.AnthropicAPIKey))
}

func redact(secret string) string {
	if secret == "" {
		return "unset"
	}
	return "***"
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or missing), then environment variables.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// applyEnv overlays TRIAGE_* environment variables onto the config.
//
// Environment variables:
//   - TRIAGE_HELPDESK_TOKEN: helpdesk API token
//   - TRIAGE_TRACKER_TOKEN: issue tracker token
//   - TRIAGE_REPOSITORIES: comma-separated owner/name scopes
//   - TRIAGE_ANTHROPIC_API_KEY (or ANTHROPIC_API_KEY): Anthropic key
//   - TRIAGE_MODEL: Anthropic model override
//   - TRIAGE_USE_LOCAL_ENGINE: use the local engine (default: false)
//   - TRIAGE_LOCAL_ENGINE_URL: local engine endpoint
//   - TRIAGE_LOCAL_ENGINE_MODEL: local engine model
//   - TRIAGE_MAX_RESULTS: ranked output cap (default: 10)
//   - TRIAGE_SEARCH_STATE: open, closed, or both (default: both)
//   - TRIAGE_SEARCH_LABEL: label filter for candidate search
//   - TRIAGE_ANALYSIS_TIMEOUT_SECS: analysis timeout in seconds (default: 120)
func (c *Config) applyEnv() error {
	parseEnvString("TRIAGE_HELPDESK_TOKEN", &c.HelpdeskToken)
	parseEnvString("TRIAGE_HELPDESK_BASE_URL", &c.HelpdeskBaseURL)
	parseEnvString("TRIAGE_TRACKER_TOKEN", &c.TrackerToken)
	parseEnvString("TRIAGE_TRACKER_BASE_URL", &c.TrackerBaseURL)
	parseEnvString("TRIAGE_MODEL", &c.Model)
	parseEnvString("TRIAGE_LOCAL_ENGINE_URL", &c.LocalEngineURL)
	parseEnvString("TRIAGE_LOCAL_ENGINE_MODEL", &c.LocalEngineModel)
	parseEnvString("TRIAGE_SEARCH_STATE", &c.SearchState)
	parseEnvString("TRIAGE_SEARCH_LABEL", &c.SearchLabel)

	if repos := os.Getenv("TRIAGE_REPOSITORIES"); repos != "" {
		c.Repositories = nil
		for _, repo := range strings.Split(repos, ",") {
			if repo = strings.TrimSpace(repo); repo != "" {
				c.Repositories = append(c.Repositories, repo)
			}
		}
	}

	parseEnvString("TRIAGE_ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	if c.AnthropicAPIKey == "" {
		parseEnvString("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	}

	if err := parseEnvBool("TRIAGE_USE_LOCAL_ENGINE", &c.UseLocalEngine); err != nil {
		return err
	}
	if err := parseEnvInt("TRIAGE_MAX_RESULTS", &c.MaxResults); err != nil {
		return err
	}
	if err := parseEnvInt("TRIAGE_MAX_CONCURRENT_SEARCHES", &c.MaxConcurrentSearches); err != nil {
		return err
	}
	if err := parseEnvInt("TRIAGE_MAX_CONCURRENT_SCORES", &c.MaxConcurrentScores); err != nil {
		return err
	}
	if err := parseEnvInt("TRIAGE_MAX_CONCURRENT_AI_CALLS", &c.MaxConcurrentAICalls); err != nil {
		return err
	}
	if err := parseEnvDuration("TRIAGE_ANALYSIS_TIMEOUT_SECS", &c.AnalysisTimeout, time.Second); err != nil {
		return err
	}
	return nil
}

// parseEnvString copies an environment variable into dest when set
func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration expressed as a count of unit
func parseEnvDuration(key string, dest *time.Duration, unit time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * unit
	return nil
}
