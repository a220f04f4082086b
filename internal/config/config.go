// Package config loads runtime settings from .env, the process environment
// and an optional YAML file, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds every runtime setting of the backend.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	StorageDriver string `yaml:"storage_driver"`
	DatabaseDSN   string `yaml:"database_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	NotificationLifetime time.Duration `yaml:"notification_lifetime"`

	JWTSecret string `yaml:"jwt_secret"`

	TelegramBotToken    string `yaml:"telegram_bot_token"`
	TelegramAlertChatID int64  `yaml:"telegram_alert_chat_id"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		HTTPAddr:             ":8080",
		Environment:          "development",
		LogLevel:             "info",
		LogFormat:            "console",
		StorageDriver:        DriverPostgres,
		DatabaseDSN:          "host=localhost user=user password=password dbname=barangaydb port=5432 sslmode=disable",
		RedisAddr:            "localhost:6379",
		GeminiModel:          DefaultGeminiModel,
		AnalysisTimeout:      DefaultAnalysisTimeout,
		NotificationLifetime: DefaultNotificationLifetime,
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("analysis timeout must be positive, got %s", c.AnalysisTimeout)
	}
	if c.NotificationLifetime <= 0 {
		return fmt.Errorf("notification lifetime must be positive, got %s", c.NotificationLifetime)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("STORAGE_DRIVER", &c.StorageDriver)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("JWT_SECRET", &c.JWTSecret)
	str("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)

	if err := dur("ANALYSIS_TIMEOUT", &c.AnalysisTimeout); err != nil {
		return err
	}
	if err := dur("NOTIFICATION_LIFETIME", &c.NotificationLifetime); err != nil {
		return err
	}

	if v, ok := lookup("TELEGRAM_ALERT_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALERT_CHAT_ID: %w", err)
		}
		c.TelegramAlertChatID = id
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
