package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PARLEY_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY",
		"PARLEY_BASE_URL", "PARLEY_MODEL", "PARLEY_REQUEST_GAP",
		"PARLEY_TELEGRAM_TOKEN", "PARLEY_ARCHIVE_DB_PATH",
		"PARLEY_ARCHIVE_RETENTION_DAYS", "PARLEY_MAX_MESSAGES",
		"PARLEY_SUMMARIZE_EVERY",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Provider.Model != DefaultModel {
		t.Errorf("model = %q, want %q", cfg.Provider.Model, DefaultModel)
	}
	if cfg.Provider.BaseURL != DefaultBaseURL {
		t.Errorf("baseUrl = %q, want %q", cfg.Provider.BaseURL, DefaultBaseURL)
	}
	if cfg.Session.MaxMessages != DefaultMaxMessages {
		t.Errorf("maxMessages = %d, want %d", cfg.Session.MaxMessages, DefaultMaxMessages)
	}
	if cfg.Session.SummarizeEvery != DefaultSummarizeEvery {
		t.Errorf("summarizeEvery = %d, want %d", cfg.Session.SummarizeEvery, DefaultSummarizeEvery)
	}
	if !cfg.Archive.Enabled {
		t.Error("archive should be enabled by default")
	}
	if cfg.Archive.RetentionDays != DefaultRetentionDays {
		t.Errorf("retentionDays = %d, want %d", cfg.Archive.RetentionDays, DefaultRetentionDays)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnvOverrides(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Provider.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, cfg.Provider.Model)
	}
	if cfg.Provider.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.Provider.APIKey)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnvOverrides(t)

	dir := filepath.Join(tmpDir, ".parley")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := map[string]any{
		"provider": map[string]any{"apiKey": "file-key", "model": "gpt-test"},
		"session":  map[string]any{"maxMessages": 6, "maxChars": 2000, "maxWords": 500, "summarizeEvery": 2},
	}
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Provider.APIKey != "file-key" {
		t.Errorf("apiKey = %q, want file-key", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", cfg.Provider.Model)
	}
	if cfg.Session.MaxMessages != 6 || cfg.Session.SummarizeEvery != 2 {
		t.Errorf("session limits not loaded: %+v", cfg.Session)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnvOverrides(t)
	t.Setenv("PARLEY_API_KEY", "env-key")
	t.Setenv("PARLEY_BASE_URL", "https://llm.example.com/v1")
	t.Setenv("PARLEY_MODEL", "env-model")
	t.Setenv("PARLEY_SUMMARIZE_EVERY", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", cfg.Provider.APIKey)
	}
	if cfg.Provider.BaseURL != "https://llm.example.com/v1" {
		t.Errorf("baseUrl = %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Model != "env-model" {
		t.Errorf("model = %q, want env-model", cfg.Provider.Model)
	}
	if cfg.Session.SummarizeEvery != 5 {
		t.Errorf("summarizeEvery = %d, want 5", cfg.Session.SummarizeEvery)
	}
}

func TestLoadConfig_GroqKeyFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnvOverrides(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Provider.APIKey != "gsk-test" {
		t.Errorf("apiKey = %q, want gsk-test", cfg.Provider.APIKey)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnvOverrides(t)

	cfg := DefaultConfig()
	cfg.Provider.APIKey = "saved-key"
	cfg.Session.MaxWords = 250

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Provider.APIKey != "saved-key" {
		t.Errorf("apiKey = %q, want saved-key", loaded.Provider.APIKey)
	}
	if loaded.Session.MaxWords != 250 {
		t.Errorf("maxWords = %d, want 250", loaded.Session.MaxWords)
	}
}
