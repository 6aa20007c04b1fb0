package config

// Package config handles configuration loading for FilingIQ.
// It supports YAML config files with environment variable overrides.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Store    StoreConfig    `mapstructure:"store"    yaml:"store"`
	Filings  FilingsConfig  `mapstructure:"filings"  yaml:"filings"`
	Compute  ComputeConfig  `mapstructure:"compute"  yaml:"compute"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds the optional narrative-summarization model settings.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"   yaml:"provider"` // "ollama" or "none"
	OllamaURL string `mapstructure:"ollama_url" yaml:"ollama_url"`
	Model     string `mapstructure:"model"      yaml:"model"`
}

// StoreConfig holds the structured value store settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // SQLite file path
}

// FilingsConfig holds filing ingestion settings.
type FilingsConfig struct {
	CacheDir  string `mapstructure:"cache_dir"  yaml:"cache_dir"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"` // SEC requires a contact UA
}

// ComputeConfig holds formula engine settings.
type ComputeConfig struct {
	Quantum      string `mapstructure:"quantum"       yaml:"quantum"`       // e.g. "0.01"
	RoundingMode string `mapstructure:"rounding_mode" yaml:"rounding_mode"` // ROUND_HALF_EVEN or ROUND_HALF_UP
	BatchWorkers int    `mapstructure:"batch_workers" yaml:"batch_workers"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.filingiq/config.yaml (home directory)
//  3. /etc/filingiq/config.yaml (system)
//
// Environment variables override config file values.
// Format: FILINGIQ_<SECTION>_<KEY>, e.g., FILINGIQ_STORE_PATH
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".filingiq"))
	v.AddConfigPath("/etc/filingiq")

	// Environment variable settings
	v.SetEnvPrefix("FILINGIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FILINGIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults: narrative generation is opt-in.
	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "qwen2.5:7b")

	// Store defaults
	v.SetDefault("store.path", filepath.Join(homeDir(), ".filingiq", "filingiq.db"))

	// Filings defaults
	v.SetDefault("filings.cache_dir", filepath.Join(homeDir(), ".filingiq", "cache"))
	v.SetDefault("filings.user_agent", "filingiq/1.0")

	// Compute defaults
	v.SetDefault("compute.quantum", "0.01")
	v.SetDefault("compute.rounding_mode", "ROUND_HALF_EVEN")
	v.SetDefault("compute.batch_workers", 4)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
