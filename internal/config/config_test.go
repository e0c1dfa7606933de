package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvOverrides neutralizes ambient CASETRACE_* and credential variables
// so tests only see the values they set themselves.
func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CASETRACE_STORAGE_ROOT",
		"CASETRACE_LLM_PROVIDER",
		"CASETRACE_LLM_MODEL",
		"CASETRACE_LLM_MODEL_REVISION",
		"CASETRACE_MAX_CONCURRENCY",
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 60, cfg.LLM.RequestsPerMinute)
	assert.True(t, cfg.LLM.Cache)

	assert.Equal(t, 5, cfg.Analyze.MaxConcurrency)
	assert.Equal(t, 14, cfg.Correlate.GapThresholdDays)
	assert.Equal(t, "generic", cfg.Summary.CaseType)
	assert.Equal(t, 50, cfg.Summary.ChunkThreshold)
	assert.Equal(t, 30, cfg.Summary.ChunkSize)
	assert.Equal(t, "zip", cfg.Package.Format)

	assert.NotEmpty(t, cfg.Storage.Root)
	assert.Equal(t, filepath.Join(cfg.Storage.Root, "index.db"), cfg.Storage.IndexPath)
}

func TestValidateAcceptsDefault(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = t.TempDir()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty root", func(c *Config) { c.Storage.Root = "" }, "storage.root"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "azure" }, "llm.provider"},
		{"empty model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"zero concurrency", func(c *Config) { c.Analyze.MaxConcurrency = 0 }, "max_concurrency"},
		{"negative resolve calls", func(c *Config) { c.Correlate.AIResolveMaxCalls = -1 }, "ai_resolve_max_calls"},
		{"zero gap threshold", func(c *Config) { c.Correlate.GapThresholdDays = 0 }, "gap_threshold_days"},
		{"unknown case type", func(c *Config) { c.Summary.CaseType = "maritime-salvage" }, "case_type"},
		{"zero chunk size", func(c *Config) { c.Summary.ChunkSize = 0 }, "chunk_size"},
		{"zero chunk threshold", func(c *Config) { c.Summary.ChunkThreshold = 0 }, "chunk_threshold"},
		{"bad package format", func(c *Config) { c.Package.Format = "tarball" }, "package.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Storage.Root = t.TempDir()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("CASETRACE_STORAGE_ROOT", "/srv/evidence")
	t.Setenv("CASETRACE_LLM_PROVIDER", "gemini")
	t.Setenv("CASETRACE_LLM_MODEL", "gemini-2.0-flash")
	t.Setenv("CASETRACE_MAX_CONCURRENCY", "9")
	t.Setenv("GEMINI_API_KEY", "gk-test")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/srv/evidence", cfg.Storage.Root)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 9, cfg.Analyze.MaxConcurrency)
	assert.Equal(t, "gk-test", cfg.LLM.APIKey)
}

func TestApplyEnvOverridesIgnoresBadConcurrency(t *testing.T) {
	clearEnvOverrides(t)

	for _, bad := range []string{"zero", "0", "-3"} {
		t.Setenv("CASETRACE_MAX_CONCURRENCY", bad)
		cfg := Default()
		applyEnvOverrides(cfg)
		assert.Equal(t, 5, cfg.Analyze.MaxConcurrency, "value %q must not override", bad)
	}
}

func TestApplyEnvOverridesCredentialFollowsProvider(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GEMINI_API_KEY", "gk-gemini")

	cfg := Default()
	applyEnvOverrides(cfg)
	assert.Equal(t, "sk-openai", cfg.LLM.APIKey)

	cfg = Default()
	cfg.LLM.Provider = "gemini"
	applyEnvOverrides(cfg)
	assert.Equal(t, "gk-gemini", cfg.LLM.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `storage:
  root: ` + dir + `
llm:
  model: gpt-4o-mini
summary:
  case_type: employment
package:
  format: directory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.Root)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "employment", cfg.Summary.CaseType)
	assert.Equal(t, "directory", cfg.Package.Format)

	// Unset fields keep their defaults.
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 30, cfg.Summary.ChunkSize)

	// Derived paths land under the configured root.
	assert.Equal(t, filepath.Join(dir, "index.db"), cfg.Storage.IndexPath)
	assert.Equal(t, filepath.Join(dir, "llm_cache.db"), cfg.LLM.CachePath)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnvOverrides(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""
	err := cfg.RequireAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.LLM.Provider = "gemini"
	err = cfg.RequireAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	cfg.LLM.APIKey = "gk-test"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestSaveOmitsCredential(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-secret"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "provider: openai")
	assert.NotContains(t, string(data), "sk-secret")
}