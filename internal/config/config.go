package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel          = "llama-3.3-70b-versatile"
	DefaultBaseURL        = "https://api.groq.com/openai/v1"
	DefaultMaxMessages    = 10
	DefaultMaxChars       = 5000
	DefaultMaxWords       = 1000
	DefaultSummarizeEvery = 3
	DefaultRequestGap     = "1s"
	DefaultHTTPTimeout    = "30s"
	DefaultRetentionDays  = 30
)

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Session  SessionConfig  `json:"session"`
	Channels ChannelsConfig `json:"channels"`
	Archive  ArchiveConfig  `json:"archive"`
}

type ProviderConfig struct {
	APIKey      string `json:"apiKey"`
	BaseURL     string `json:"baseUrl,omitempty"`
	Model       string `json:"model,omitempty"`
	RequestGap  string `json:"requestGap,omitempty"`
	HTTPTimeout string `json:"httpTimeout,omitempty"`
}

type SessionConfig struct {
	MaxMessages    int `json:"maxMessages"`
	MaxChars       int `json:"maxChars"`
	MaxWords       int `json:"maxWords"`
	SummarizeEvery int `json:"summarizeEvery"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type ArchiveConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath,omitempty"`
	RetentionDays int    `json:"retentionDays,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			RequestGap:  DefaultRequestGap,
			HTTPTimeout: DefaultHTTPTimeout,
		},
		Session: SessionConfig{
			MaxMessages:    DefaultMaxMessages,
			MaxChars:       DefaultMaxChars,
			MaxWords:       DefaultMaxWords,
			SummarizeEvery: DefaultSummarizeEvery,
		},
		Channels: ChannelsConfig{},
		Archive: ArchiveConfig{
			Enabled:       true,
			DBPath:        filepath.Join(ConfigDir(), "archive.db"),
			RetentionDays: DefaultRetentionDays,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".parley")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("PARLEY_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("PARLEY_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if gap := os.Getenv("PARLEY_REQUEST_GAP"); gap != "" {
		cfg.Provider.RequestGap = gap
	}
	if token := os.Getenv("PARLEY_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("PARLEY_ARCHIVE_DB_PATH"); dbPath != "" {
		cfg.Archive.DBPath = dbPath
	}
	if days := os.Getenv("PARLEY_ARCHIVE_RETENTION_DAYS"); days != "" {
		if parsed, err := strconv.Atoi(days); err == nil {
			cfg.Archive.RetentionDays = parsed
		}
	}
	if n := os.Getenv("PARLEY_MAX_MESSAGES"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			cfg.Session.MaxMessages = parsed
		}
	}
	if n := os.Getenv("PARLEY_SUMMARIZE_EVERY"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			cfg.Session.SummarizeEvery = parsed
		}
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.RequestGap == "" {
		cfg.Provider.RequestGap = DefaultRequestGap
	}
	if cfg.Provider.HTTPTimeout == "" {
		cfg.Provider.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.Session.MaxMessages <= 0 {
		cfg.Session.MaxMessages = DefaultMaxMessages
	}
	if cfg.Session.MaxChars <= 0 {
		cfg.Session.MaxChars = DefaultMaxChars
	}
	if cfg.Session.MaxWords <= 0 {
		cfg.Session.MaxWords = DefaultMaxWords
	}
	if cfg.Session.SummarizeEvery <= 0 {
		cfg.Session.SummarizeEvery = DefaultSummarizeEvery
	}
	if cfg.Archive.DBPath == "" {
		cfg.Archive.DBPath = filepath.Join(ConfigDir(), "archive.db")
	}
	if cfg.Archive.RetentionDays <= 0 {
		cfg.Archive.RetentionDays = DefaultRetentionDays
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
