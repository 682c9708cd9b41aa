package config

import (
	"fmt"
	"strings"
)

// IdentityConfig holds the settings needed to talk to the identity provider.
type IdentityConfig struct {
	URL     string
	AnonKey string
}

// Identity extracts the identity provider settings from c.
// It fails when either value is missing so auth commands can report it up front.
func (c *Config) Identity() (*IdentityConfig, error) {
	ic := &IdentityConfig{
		URL:     strings.TrimRight(c.SupabaseURL, "/"),
		AnonKey: c.SupabaseAnonKey,
	}
	if err := ic.normalize(); err != nil {
		return nil, err
	}
	return ic, nil
}

// normalize validates the configuration.
func (c *IdentityConfig) normalize() error {
	if c.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required but not set")
	}
	if c.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required but not set")
	}
	return nil
}
