// Package config loads and validates the host-level configuration for a
// flowrun process: the global concurrency bound, configured providers, and
// ambient settings like log level and the temp directory node executors
// stage files under.
package config

import "fmt"

// ProviderConfig is the per-provider settings block, e.g. an API key plus
// any provider-specific extras.
type ProviderConfig struct {
	APIKey string         `json:"apiKey" yaml:"apiKey"`
	Extra  map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Concurrency bounds how many flows may run simultaneously.
type Concurrency struct {
	GlobalLimit int `json:"global_limit" yaml:"global_limit"`
}

// Config is the recognized host configuration (spec §6 Configuration).
type Config struct {
	Concurrency Concurrency `json:"concurrency" yaml:"concurrency"`

	// Providers is keyed by category ("llm", "embedding", "vector") then by
	// provider name ("openai", "gemini", "pgvector", "milvus", ...).
	Providers map[string]map[string]ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty"`

	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	TempDir  string `json:"tempDir,omitempty" yaml:"tempDir,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the recognized options once at host construction. Provider
// API key absence is deliberately not checked here: spec §6 says it is
// "fatal only when a node requiring that provider runs", which is the
// provider-availability validation pass and the executor's job, not this
// one-time config check.
func (c *Config) Validate() error {
	if c.Concurrency.GlobalLimit <= 0 {
		return fmt.Errorf("config: concurrency.global_limit must be a positive integer, got %d", c.Concurrency.GlobalLimit)
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("config: logLevel %q is not one of debug|info|warn|error", c.LogLevel)
	}
	return nil
}

// HasProvider reports whether a provider is configured under category.
func (c *Config) HasProvider(category, name string) bool {
	providers, ok := c.Providers[category]
	if !ok {
		return false
	}
	_, ok = providers[name]
	return ok
}

// Provider returns the configuration for a (category, name) pair, if any.
func (c *Config) Provider(category, name string) (ProviderConfig, bool) {
	providers, ok := c.Providers[category]
	if !ok {
		return ProviderConfig{}, false
	}
	pc, ok := providers[name]
	return pc, ok
}
