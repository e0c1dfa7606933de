package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the pipeline.
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	// Analyze stage settings
	Analyze AnalyzeConfig `yaml:"analyze" mapstructure:"analyze"`

	// Correlation settings
	Correlate CorrelateConfig `yaml:"correlate" mapstructure:"correlate"`

	// Summary generation settings
	Summary SummaryConfig `yaml:"summary" mapstructure:"summary"`

	// Package builder settings
	Package PackageConfig `yaml:"package" mapstructure:"package"`
}

type StorageConfig struct {
	Root string `yaml:"root" mapstructure:"root"` // filesystem root for the store
	// IndexPath is the SQLite case index. Derived and regenerable; defaults
	// to <root>/index.db.
	IndexPath string `yaml:"index_path" mapstructure:"index_path"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // "openai" or "gemini"
	Model             string        `yaml:"model" mapstructure:"model"`
	ModelRevision     string        `yaml:"model_revision" mapstructure:"model_revision"`
	APIKey            string        `yaml:"-" mapstructure:"-"` // process env only, never persisted
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Cache             bool          `yaml:"cache" mapstructure:"cache"`
	CachePath         string        `yaml:"cache_path" mapstructure:"cache_path"`
}

type AnalyzeConfig struct {
	MaxConcurrency int  `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	Force          bool `yaml:"force" mapstructure:"force"`
}

type CorrelateConfig struct {
	AIResolve         bool `yaml:"ai_resolve" mapstructure:"ai_resolve"`
	AIResolveMaxCalls int  `yaml:"ai_resolve_max_calls" mapstructure:"ai_resolve_max_calls"`
	// GapThresholdDays marks a timeline stretch with no events as suspicious
	// when it spans at least this many days between material events.
	GapThresholdDays int `yaml:"gap_threshold_days" mapstructure:"gap_threshold_days"`
}

type SummaryConfig struct {
	CaseType       string `yaml:"case_type" mapstructure:"case_type"` // generic, workplace, employment, contract
	ChunkThreshold int    `yaml:"chunk_threshold" mapstructure:"chunk_threshold"`
	ChunkSize      int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	LegalPatterns  bool   `yaml:"legal_patterns" mapstructure:"legal_patterns"`
}

type PackageConfig struct {
	IncludeRaw bool   `yaml:"include_raw" mapstructure:"include_raw"`
	Format     string `yaml:"format" mapstructure:"format"` // "zip" or "directory"
	OutputDir  string `yaml:"output_dir" mapstructure:"output_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".casetrace", "evidence")
	return &Config{
		Storage: StorageConfig{
			Root:      root,
			IndexPath: filepath.Join(root, "index.db"),
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			Timeout:           120 * time.Second,
			MaxRetries:        3,
			RequestsPerMinute: 60,
			Cache:             true,
		},
		Analyze: AnalyzeConfig{
			MaxConcurrency: 5,
			Force:          false,
		},
		Correlate: CorrelateConfig{
			AIResolve:         false,
			AIResolveMaxCalls: 50,
			GapThresholdDays:  14,
		},
		Summary: SummaryConfig{
			CaseType:       "generic",
			ChunkThreshold: 50,
			ChunkSize:      30,
			LegalPatterns:  true,
		},
		Package: PackageConfig{
			IncludeRaw: false,
			Format:     "zip",
		},
	}
}

// Load reads configuration from file, environment and defaults, in that
// order of increasing precedence for env overrides.
func Load(cfgFile string) (*Config, error) {
	// Load .env if present; ignore absence
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".casetrace")
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".casetrace"))
		}
	}

	v.SetEnvPrefix("CASETRACE")
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, err
		}
		// No config file: defaults + env
	} else {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = filepath.Join(cfg.Storage.Root, "index.db")
	}
	if cfg.LLM.CachePath == "" {
		cfg.LLM.CachePath = filepath.Join(cfg.Storage.Root, "llm_cache.db")
	}

	return cfg, nil
}
