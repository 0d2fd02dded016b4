// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.schoolwijzer/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider selection (gemini or openai), model, sampling parameters
//   - Storage: PostgreSQL connection
//   - Chat: history window, retry/backoff knobs, cache TTL
//
// Security: sensitive values (passwords, API keys) are never logged; MarshalJSON masks them.
// Validation: range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max output tokens")

	// ErrInvalidTopP indicates the top_p value is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidTimeout indicates the request timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid request timeout")

	// ErrInvalidHistoryWindow indicates the history window size is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Defaults for the provider wire contract. Temperature is deliberately low:
// enrollment answers should be reproducible, not creative.
const (
	DefaultTemperature     = 0.3
	DefaultMaxOutputTokens = 4096
	DefaultTopP            = 0.8
	DefaultRequestTimeout  = 60 * time.Second

	// DefaultHistoryWindow is the number of recent turns injected as context.
	DefaultHistoryWindow = 10

	// MaxAllowedHistoryWindow prevents pathological context sizes.
	MaxAllowedHistoryWindow = 100
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI provider and model configuration
	Provider        string        `mapstructure:"provider" json:"provider"`   // "gemini" (default) or "openai"
	ModelName       string        `mapstructure:"model_name" json:"model_name"`
	Temperature     float32       `mapstructure:"temperature" json:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" json:"max_output_tokens"`
	TopP            float32       `mapstructure:"top_p" json:"top_p"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	Language        string        `mapstructure:"language" json:"language"` // "nl" (default) or "en"

	// API keys (read from environment, never from file)
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIAPIKey string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON

	// Conversation configuration
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`

	// Retry/backoff configuration for provider calls
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts" json:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay" json:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay" json:"retry_max_delay"`

	// Knowledge cache
	CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"` // per-IP token bucket burst (0 = default)
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".schoolwijzer")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail-fast validation
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", DefaultTemperature)
	viper.SetDefault("max_output_tokens", DefaultMaxOutputTokens)
	viper.SetDefault("top_p", DefaultTopP)
	viper.SetDefault("request_timeout", DefaultRequestTimeout)
	viper.SetDefault("language", "nl")

	// Conversation defaults
	viper.SetDefault("history_window", DefaultHistoryWindow)

	// Retry defaults (delays observed on failure: 1s, 2s, then give up)
	viper.SetDefault("retry_max_attempts", 3)
	viper.SetDefault("retry_base_delay", time.Second)
	viper.SetDefault("retry_max_delay", 10*time.Second)

	// Cache defaults
	viper.SetDefault("cache_ttl", 15*time.Minute)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "schoolwijzer")
	viper.SetDefault("postgres_password", "schoolwijzer_dev_password")
	viper.SetDefault("postgres_db_name", "schoolwijzer")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP defaults
	viper.SetDefault("listen_addr", ":8080")
}

// bindEnvVariables binds environment variables explicitly.
// API keys are only ever read from the environment, never from the config file.
func bindEnvVariables() {
	// Hardcoded keys can't fail to bind; a panic here is a bug, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("openai_api_key", "OPENAI_API_KEY")

	mustBind("provider", "SCHOOLWIJZER_PROVIDER")
	mustBind("model_name", "SCHOOLWIJZER_MODEL_NAME")
	mustBind("language", "SCHOOLWIJZER_LANG")
	mustBind("listen_addr", "SCHOOLWIJZER_LISTEN_ADDR")

	mustBind("postgres_host", "SCHOOLWIJZER_POSTGRES_HOST")
	mustBind("postgres_password", "SCHOOLWIJZER_POSTGRES_PASSWORD")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer ones keep the first
// and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// ConnString returns the PostgreSQL connection URL.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
