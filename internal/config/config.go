// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used when neither the config file nor the environment sets a key.
const (
	DefaultAPIURL                = "http://localhost:8000"
	DefaultSearchLimit           = 3
	DefaultWarmupIntervalMS      = 3000
	DefaultCopyAckMS             = 2000
	DefaultRequestTimeoutSeconds = 60

	// MaxSearchLimit is the largest limit the search endpoint accepts.
	MaxSearchLimit = 20
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or environment variables.
type Config struct {
	// Endpoints
	APIURL          string `json:"api_url,omitempty" yaml:"api_url,omitempty"`                     // Backend base URL
	SupabaseURL     string `json:"supabase_url,omitempty" yaml:"supabase_url,omitempty"`           // Identity provider base URL
	SupabaseAnonKey string `json:"supabase_anon_key,omitempty" yaml:"supabase_anon_key,omitempty"` // Identity provider public key

	// Storage
	ProfileDir string `json:"profile_dir,omitempty" yaml:"profile_dir,omitempty"` // Where the session file lives

	// Limits
	SearchLimit           int `json:"search_limit,omitempty" yaml:"search_limit,omitempty"`                       // Matches requested per search
	WarmupIntervalMS      int `json:"warmup_interval_ms,omitempty" yaml:"warmup_interval_ms,omitempty"`           // Liveness poll interval
	WarmupMaxAttempts     int `json:"warmup_max_attempts,omitempty" yaml:"warmup_max_attempts,omitempty"`         // 0 polls forever
	CopyAckMS             int `json:"copy_ack_ms,omitempty" yaml:"copy_ack_ms,omitempty"`                         // How long a copy stays acknowledged
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty" yaml:"request_timeout_seconds,omitempty"` // HTTP client timeout

	// Behavior
	RateLimitEnabled *bool `json:"rate_limit_enabled,omitempty" yaml:"rate_limit_enabled,omitempty"` // Client-side throttle
	Verbose          bool  `json:"verbose,omitempty" yaml:"verbose,omitempty"`                       // Print detailed debug information
}

// LoadConfig loads configuration from a JSON or YAML file.
// The format is chosen by extension; .yaml and .yml are YAML, everything else is JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: environment over file over defaults.
// An empty path skips the file layer.
func Load(path string) (Config, error) {
	file := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	cfg := file.ApplyEnv().MergeWithDefaults(Defaults())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	enabled := true
	return Config{
		APIURL:                DefaultAPIURL,
		ProfileDir:            defaultProfileDir(),
		SearchLimit:           DefaultSearchLimit,
		WarmupIntervalMS:      DefaultWarmupIntervalMS,
		CopyAckMS:             DefaultCopyAckMS,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		RateLimitEnabled:      &enabled,
	}
}

func defaultProfileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".resume-tailor")
	}
	return filepath.Join(dir, "resume-tailor")
}

// ApplyEnv returns a copy of c with values from the environment taking precedence.
func (c *Config) ApplyEnv() *Config {
	result := *c

	if v := firstEnv("RESUME_TAILOR_API_URL", "REACT_APP_API_URL"); v != "" {
		result.APIURL = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		result.SupabaseURL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		result.SupabaseAnonKey = v
	}
	if v := os.Getenv("RESUME_TAILOR_PROFILE_DIR"); v != "" {
		result.ProfileDir = v
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			result.RateLimitEnabled = &enabled
		}
	}

	return &result
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks that the configuration has valid values.
// Missing identity provider settings are reported by the commands that need them.
func (c *Config) Validate() error {
	if c.APIURL != "" && !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("config error: 'api_url' must be an http(s) URL, got %q", c.APIURL)
	}
	if c.SupabaseURL != "" && !strings.HasPrefix(c.SupabaseURL, "http://") && !strings.HasPrefix(c.SupabaseURL, "https://") {
		return fmt.Errorf("config error: 'supabase_url' must be an http(s) URL, got %q", c.SupabaseURL)
	}

	// Validate numeric ranges
	if c.SearchLimit < 0 || c.SearchLimit > MaxSearchLimit {
		return fmt.Errorf("config error: 'search_limit' must be between 1 and %d", MaxSearchLimit)
	}
	if c.WarmupIntervalMS < 0 {
		return fmt.Errorf("config error: 'warmup_interval_ms' must be non-negative")
	}
	if c.WarmupMaxAttempts < 0 {
		return fmt.Errorf("config error: 'warmup_max_attempts' must be non-negative")
	}
	if c.CopyAckMS < 0 {
		return fmt.Errorf("config error: 'copy_ack_ms' must be non-negative")
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'request_timeout_seconds' must be non-negative")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIURL == "" {
		result.APIURL = defaults.APIURL
	}
	if result.SupabaseURL == "" {
		result.SupabaseURL = defaults.SupabaseURL
	}
	if result.SupabaseAnonKey == "" {
		result.SupabaseAnonKey = defaults.SupabaseAnonKey
	}
	if result.ProfileDir == "" {
		result.ProfileDir = defaults.ProfileDir
	}

	// Int fields: use default if zero
	if result.SearchLimit == 0 {
		result.SearchLimit = defaults.SearchLimit
	}
	if result.WarmupIntervalMS == 0 {
		result.WarmupIntervalMS = defaults.WarmupIntervalMS
	}
	if result.WarmupMaxAttempts == 0 {
		result.WarmupMaxAttempts = defaults.WarmupMaxAttempts
	}
	if result.CopyAckMS == 0 {
		result.CopyAckMS = defaults.CopyAckMS
	}
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}

	// Pointer bools distinguish unset from false
	if result.RateLimitEnabled == nil {
		result.RateLimitEnabled = defaults.RateLimitEnabled
	}

	// Verbose cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// TrimmedAPIURL returns the API URL without a trailing slash.
func (c *Config) TrimmedAPIURL() string {
	return strings.TrimRight(c.APIURL, "/")
}

// RateLimited reports whether the client-side throttle is on.
func (c *Config) RateLimited() bool {
	return c.RateLimitEnabled == nil || *c.RateLimitEnabled
}

// WarmupInterval returns the liveness poll interval.
func (c *Config) WarmupInterval() time.Duration {
	return time.Duration(c.WarmupIntervalMS) * time.Millisecond
}

// CopyAck returns how long a copy acknowledgment stays visible.
func (c *Config) CopyAck() time.Duration {
	return time.Duration(c.CopyAckMS) * time.Millisecond
}

// RequestTimeout returns the HTTP client timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SessionFile returns the path of the persisted session.
func (c *Config) SessionFile() string {
	return filepath.Join(c.ProfileDir, "session.json")
}
