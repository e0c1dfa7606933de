package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides maps well-known environment variables onto the config.
// API keys are never read from config files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASETRACE_STORAGE_ROOT"); v != "" {
		cfg.Storage.Root = v
	}
	if v := os.Getenv("CASETRACE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("CASETRACE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CASETRACE_LLM_MODEL_REVISION"); v != "" {
		cfg.LLM.ModelRevision = v
	}
	if v := os.Getenv("CASETRACE_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Analyze.MaxConcurrency = n
		}
	}

	// Provider credential comes from the provider's conventional variable.
	switch cfg.LLM.Provider {
	case "gemini":
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
