// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (LYCEUM_* prefix, plus DATABASE_URL)
//  2. Config file (./config.yaml or /etc/lyceum/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Server: HTTP listen address, proxy trust, rate limiting
//   - AI: Generation model and embedder model
//   - Storage: PostgreSQL connection (see storage.go)
//
// Security: Sensitive data (passwords) are never logged.
// Validation: Range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAddr indicates the HTTP listen address is invalid.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidRateBurst indicates the rate limiter burst is out of range.
	ErrInvalidRateBurst = errors.New("invalid rate limit burst")

	// ErrInvalidRateRefill indicates the rate limiter refill rate is out of range.
	ErrInvalidRateRefill = errors.New("invalid rate limit refill rate")

	// ErrInvalidMaxUploadBytes indicates the upload size limit is out of range.
	ErrInvalidMaxUploadBytes = errors.New("invalid max upload size")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModelName is the default Gemini generation model.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation to 768 via OutputDimensionality. Our pgvector schema uses
	// 768 dimensions; see index.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = ":8080"

	// DefaultTopK is the default number of chunks retrieved per query.
	DefaultTopK = 5

	// DefaultRateBurst is the default per-client rate limiter burst.
	DefaultRateBurst = 20

	// DefaultRateRefill is the default per-client token refill rate in
	// tokens per second.
	DefaultRateRefill = 1.0

	// DefaultMaxUploadBytes is the default upload size limit (32 MiB).
	DefaultMaxUploadBytes int64 = 32 << 20
)

// Config stores application configuration.
// SECURITY: Never log PostgresPassword.
type Config struct {
	// Server configuration
	Addr       string  `mapstructure:"addr"`
	TrustProxy bool    `mapstructure:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateBurst  int     `mapstructure:"rate_burst"`
	RateRefill float64 `mapstructure:"rate_refill"` // tokens per second per client

	// Logging configuration
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json"`

	// AI model configuration
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k"`

	// Upload configuration
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never log
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/lyceum")

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{".", "/etc/lyceum"},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_burst", DefaultRateBurst)
	v.SetDefault("rate_refill", DefaultRateRefill)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)

	// AI defaults
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval defaults
	v.SetDefault("top_k", DefaultTopK)

	// Upload defaults
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)

	// PostgreSQL defaults for local development
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lyceum")
	v.SetDefault("postgres_password", "lyceum_dev_password")
	v.SetDefault("postgres_db_name", "lyceum")
	v.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit (not via Viper); its presence
// is checked in cfg.Validate().
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("addr", "LYCEUM_ADDR")
	mustBind("trust_proxy", "LYCEUM_TRUST_PROXY")
	mustBind("rate_burst", "LYCEUM_RATE_BURST")
	mustBind("rate_refill", "LYCEUM_RATE_REFILL")

	mustBind("log_level", "LYCEUM_LOG_LEVEL")
	mustBind("log_json", "LYCEUM_LOG_JSON")

	mustBind("model_name", "LYCEUM_MODEL_NAME")
	mustBind("embedder_model", "LYCEUM_EMBEDDER_MODEL")

	mustBind("top_k", "LYCEUM_TOP_K")
	mustBind("max_upload_bytes", "LYCEUM_MAX_UPLOAD_BYTES")

	mustBind("postgres_host", "LYCEUM_POSTGRES_HOST")
	mustBind("postgres_port", "LYCEUM_POSTGRES_PORT")
	mustBind("postgres_user", "LYCEUM_POSTGRES_USER")
	mustBind("postgres_password", "LYCEUM_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "LYCEUM_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "LYCEUM_POSTGRES_SSL_MODE")
}
