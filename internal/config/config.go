package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAPIBaseURL = "TWINBY_API_BASE_URL"
	EnvLogLevel   = "TWINBY_LOG_LEVEL"
)

// Config represents the global ~/.twinby/config.toml.
type Config struct {
	DefaultWorkspace string `toml:"default_workspace"`
	APIBaseURL       string `toml:"api_base_url"`
	LogLevel         string `toml:"log_level"`
	FeedLimit        int    `toml:"feed_limit"`
	Poll             Poll   `toml:"poll"`
}

// Poll holds the background refresh intervals.
type Poll struct {
	ConversationInterval time.Duration `toml:"conversation_interval"`
	ChatListInterval     time.Duration `toml:"chat_list_interval"`
	SupportInterval      time.Duration `toml:"support_interval"`
}

// Default returns the values used when the config file is missing or silent.
func Default() *Config {
	return &Config{
		APIBaseURL: "http://localhost:8000",
		LogLevel:   "info",
		FeedLimit:  20,
		Poll: Poll{
			ConversationInterval: 2500 * time.Millisecond,
			ChatListInterval:     3 * time.Second,
			SupportInterval:      2500 * time.Millisecond,
		},
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
// Zero fields are filled from Default.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv loads the optional dotenv file at envPath into the process
// environment (existing variables win) and applies overrides to cfg.
func ApplyEnv(cfg *Config, envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.FeedLimit <= 0 {
		c.FeedLimit = d.FeedLimit
	}
	if c.Poll.ConversationInterval <= 0 {
		c.Poll.ConversationInterval = d.Poll.ConversationInterval
	}
	if c.Poll.ChatListInterval <= 0 {
		c.Poll.ChatListInterval = d.Poll.ChatListInterval
	}
	if c.Poll.SupportInterval <= 0 {
		c.Poll.SupportInterval = d.Poll.SupportInterval
	}
}
