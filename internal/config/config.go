// Package config provides configuration loading and structs for the Tansaku overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the overlay and its host harness.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Collaborator CollaboratorConfig `yaml:"collaborator"`
	Search       SearchConfig       `yaml:"search"`
	History      HistoryConfig      `yaml:"history"`
}

// CollaboratorConfig holds settings for the remote snippet backend.
type CollaboratorConfig struct {
	BaseURL        string `yaml:"base_url"`
	AuthToken      string `yaml:"auth_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c *CollaboratorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SearchConfig holds instant-search tuning knobs.
type SearchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
	PageLimit  int `yaml:"page_limit"`
}

// Debounce returns the debounce interval as a duration.
func (s *SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// HistoryConfig holds recent-search persistence settings.
type HistoryConfig struct {
	// Backend selects the storage implementation: "file" or "sqlite".
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.History.Path = expandPath(cfg.History.Path, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if home, err := os.UserHomeDir(); err == nil {
		cfg.History.Path = filepath.Join(home, cfg.History.Path)
	}
	return cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
