// Package config provides the gate's configuration document: trusted
// identities and rate-limit tuning. The document is JSON per the registry
// contract; since JSON is a YAML subset the loader accepts either.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gate configuration.
type Config struct {
	// TrustedUsers are identity glob patterns exempt from rate limiting.
	TrustedUsers []string `yaml:"trusted_users" json:"trusted_users"`
	// RateLimit tunes the new-package submission limiter.
	RateLimit RateLimit `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimit bounds new-package submissions per identity.
type RateLimit struct {
	// NewPackagesPerWeek is the submission count at which auto-merge is
	// denied.
	NewPackagesPerWeek int `yaml:"new_packages_per_week" json:"new_packages_per_week"`
	// WindowDays is the trailing history window consulted.
	WindowDays int `yaml:"window_days" json:"window_days"`
}

// Default returns the configuration used when no document is supplied:
// empty trusted list, one new package per seven-day window.
func Default() *Config {
	return &Config{
		RateLimit: RateLimit{
			NewPackagesPerWeek: 1,
			WindowDays:         7,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RateLimit.NewPackagesPerWeek < 1 {
		return fmt.Errorf("rate_limit.new_packages_per_week must be at least 1")
	}
	if c.RateLimit.WindowDays < 1 {
		return fmt.Errorf("rate_limit.window_days must be at least 1")
	}
	return nil
}

// Window returns the rate-limit window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowDays) * 24 * time.Hour
}

// Merge overlays another config onto this one; non-zero values in other
// take precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if len(other.TrustedUsers) > 0 {
		c.TrustedUsers = other.TrustedUsers
	}
	if other.RateLimit.NewPackagesPerWeek != 0 {
		c.RateLimit.NewPackagesPerWeek = other.RateLimit.NewPackagesPerWeek
	}
	if other.RateLimit.WindowDays != 0 {
		c.RateLimit.WindowDays = other.RateLimit.WindowDays
	}
}

// LoadFromFile reads a configuration document and overlays it onto the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	cfg.Merge(&loaded)
	return cfg, nil
}

// Load resolves the effective configuration: defaults when path is empty
// or the file is absent, the loaded document otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}
