package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Unset any env vars that would interfere
	envVars := []string{
		"FILINGIQ_LLM_PROVIDER", "FILINGIQ_STORE_PATH",
		"FILINGIQ_API_PORT", "FILINGIQ_COMPUTE_QUANTUM",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// LLM defaults
	if cfg.LLM.Provider != "none" {
		t.Errorf("LLM.Provider: got %q, want %q", cfg.LLM.Provider, "none")
	}
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("LLM.OllamaURL: got %q", cfg.LLM.OllamaURL)
	}
	if cfg.LLM.Model != "qwen2.5:7b" {
		t.Errorf("LLM.Model: got %q", cfg.LLM.Model)
	}

	// Store defaults
	if cfg.Store.Path == "" {
		t.Error("Store.Path should have a default")
	}

	// Filings defaults
	if cfg.Filings.CacheDir == "" {
		t.Error("Filings.CacheDir should have a default")
	}
	if cfg.Filings.UserAgent != "filingiq/1.0" {
		t.Errorf("Filings.UserAgent: got %q", cfg.Filings.UserAgent)
	}

	// Compute defaults
	if cfg.Compute.Quantum != "0.01" {
		t.Errorf("Compute.Quantum: got %q, want %q", cfg.Compute.Quantum, "0.01")
	}
	if cfg.Compute.RoundingMode != "ROUND_HALF_EVEN" {
		t.Errorf("Compute.RoundingMode: got %q", cfg.Compute.RoundingMode)
	}
	if cfg.Compute.BatchWorkers != 4 {
		t.Errorf("Compute.BatchWorkers: got %d, want 4", cfg.Compute.BatchWorkers)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	// Create a temp config file
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
llm:
  provider: "ollama"
  model: "llama3.1:8b"
store:
  path: "/tmp/test.db"
compute:
  quantum: "0.001"
  rounding_mode: "ROUND_HALF_UP"
  batch_workers: 8
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("LLM.Provider: got %q, want %q", cfg.LLM.Provider, "ollama")
	}
	if cfg.LLM.Model != "llama3.1:8b" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "llama3.1:8b")
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("Store.Path: got %q", cfg.Store.Path)
	}
	if cfg.Compute.Quantum != "0.001" {
		t.Errorf("Compute.Quantum: got %q, want %q", cfg.Compute.Quantum, "0.001")
	}
	if cfg.Compute.RoundingMode != "ROUND_HALF_UP" {
		t.Errorf("Compute.RoundingMode: got %q", cfg.Compute.RoundingMode)
	}
	if cfg.Compute.BatchWorkers != 8 {
		t.Errorf("Compute.BatchWorkers: got %d, want 8", cfg.Compute.BatchWorkers)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	h := homeDir()
	if h == "" {
		t.Error("homeDir() should not return empty string")
	}
}
