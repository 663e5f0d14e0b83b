package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/contest-countdown/internal/storage"
)

// EnvPrefix prefixes every environment variable override,
// e.g. CONTEST_COUNTDOWN_POLLER_REFRESH_INTERVAL.
const EnvPrefix = "CONTEST_COUNTDOWN"

// Config represents the complete application configuration
type Config struct {
	Codeforces CodeforcesConfig `mapstructure:"codeforces"`
	Poller     PollerConfig     `mapstructure:"poller"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CodeforcesConfig holds contest API configuration
type CodeforcesConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PollerConfig holds refresh and retry behavior
type PollerConfig struct {
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialRetryDelay time.Duration `mapstructure:"initial_retry_delay"`
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
}

// StorageConfig holds cache location configuration
type StorageConfig struct {
	Backend  string `mapstructure:"backend"` // "file" or "sqlite"
	CacheDir string `mapstructure:"cache_dir"`
	AppID    string `mapstructure:"app_id"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("codeforces.api_base_url", "https://codeforces.com/api")
	v.SetDefault("codeforces.timeout", "30s")

	v.SetDefault("poller.refresh_interval", "6h")
	v.SetDefault("poller.max_retries", 5)
	v.SetDefault("poller.initial_retry_delay", "1s")
	v.SetDefault("poller.countdown_interval", "1m")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.cache_dir", "")
	v.SetDefault("storage.app_id", "contest-countdown")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Codeforces.APIBaseURL == "" {
		return fmt.Errorf("codeforces.api_base_url is required")
	}
	if c.Codeforces.Timeout < 0 {
		return fmt.Errorf("codeforces.timeout must not be negative")
	}

	if c.Poller.RefreshInterval < time.Minute {
		return fmt.Errorf("poller.refresh_interval must be at least 1 minute")
	}
	if c.Poller.MaxRetries < 1 || c.Poller.MaxRetries > 10 {
		return fmt.Errorf("poller.max_retries must be between 1 and 10")
	}
	if c.Poller.InitialRetryDelay <= 0 {
		return fmt.Errorf("poller.initial_retry_delay must be positive")
	}
	if c.Poller.CountdownInterval < time.Second {
		return fmt.Errorf("poller.countdown_interval must be at least 1 second")
	}

	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("storage.backend must be one of: file, sqlite")
	}
	if c.Storage.AppID == "" {
		return fmt.Errorf("storage.app_id is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// CachePath returns the cache file or database path for the configured backend
func (c *Config) CachePath() (string, error) {
	dir, err := storage.CacheDir(c.Storage.CacheDir, c.Storage.AppID)
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(dir, storage.DBFileName), nil
	}
	return filepath.Join(dir, storage.FileName), nil
}
