package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/casetrace/casetrace-go/internal/errors"
)

var validCaseTypes = map[string]bool{
	"generic":    true,
	"workplace":  true,
	"employment": true,
	"contract":   true,
}

// Validate fail-fasts on invalid configuration before any pipeline I/O.
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return errors.ConfigError("storage.root is required")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return errors.ConfigErrorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.ConfigError("llm.model is required")
	}
	if c.Analyze.MaxConcurrency < 1 {
		return errors.ConfigErrorf("analyze.max_concurrency must be >= 1, got %d", c.Analyze.MaxConcurrency)
	}
	if c.Correlate.AIResolveMaxCalls < 0 {
		return errors.ConfigErrorf("correlate.ai_resolve_max_calls must be >= 0, got %d", c.Correlate.AIResolveMaxCalls)
	}
	if c.Correlate.GapThresholdDays < 1 {
		return errors.ConfigErrorf("correlate.gap_threshold_days must be >= 1, got %d", c.Correlate.GapThresholdDays)
	}
	if !validCaseTypes[c.Summary.CaseType] {
		return errors.ConfigErrorf("summary.case_type must be one of generic, workplace, employment, contract; got %q", c.Summary.CaseType)
	}
	if c.Summary.ChunkSize < 1 {
		return errors.ConfigErrorf("summary.chunk_size must be >= 1, got %d", c.Summary.ChunkSize)
	}
	if c.Summary.ChunkThreshold < 1 {
		return errors.ConfigErrorf("summary.chunk_threshold must be >= 1, got %d", c.Summary.ChunkThreshold)
	}
	switch c.Package.Format {
	case "zip", "directory":
	default:
		return errors.ConfigErrorf("package.format must be zip or directory, got %q", c.Package.Format)
	}
	return nil
}

// RequireAPIKey validates that the provider credential is present. Split out
// of Validate because read-only commands (status, cleanup) never call the
// provider.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			return errors.ConfigError("GEMINI_API_KEY is not set")
		default:
			return errors.ConfigError("OPENAI_API_KEY is not set")
		}
	}
	return nil
}

// Save writes the configuration (minus credentials) as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
