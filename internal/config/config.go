package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	App      AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// RedisConfig holds the connection settings for the dedupe cache
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// WebhookConfig holds the ingestion pipeline settings
type WebhookConfig struct {
	// SigningSecret is the HMAC secret used to verify inbound event
	// signatures. Verification is unconditional; an empty secret fails
	// config validation.
	SigningSecret   string
	MaxAttempts     int
	BackoffBase     time.Duration
	PollInterval    time.Duration
	Workers         int
	ClaimBatch      int
	MarkerRetention time.Duration
	DedupeTTL       time.Duration
	StuckAge        time.Duration
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	// DefaultRegion is the ISO country code assumed when a contact phone
	// number carries no international prefix.
	DefaultRegion string
	// CallRateCentsPerMinute prices completed calls reported by the voice
	// provider.
	CallRateCentsPerMinute int64
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from the environment (and an optional .env file)
// with sensible defaults
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "voxline"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Webhook: WebhookConfig{
			SigningSecret:   getEnv("WEBHOOK_SIGNING_SECRET", ""),
			MaxAttempts:     getEnvAsInt("WEBHOOK_MAX_ATTEMPTS", 3),
			BackoffBase:     getEnvAsDuration("WEBHOOK_BACKOFF_BASE", "2s"),
			PollInterval:    getEnvAsDuration("WEBHOOK_POLL_INTERVAL", "1s"),
			Workers:         getEnvAsInt("WEBHOOK_WORKERS", 3),
			ClaimBatch:      getEnvAsInt("WEBHOOK_CLAIM_BATCH", 10),
			MarkerRetention: getEnvAsDuration("WEBHOOK_MARKER_RETENTION", "24h"),
			DedupeTTL:       getEnvAsDuration("WEBHOOK_DEDUPE_TTL", "24h"),
			StuckAge:        getEnvAsDuration("WEBHOOK_STUCK_AGE", "5m"),
		},
		App: AppConfig{
			DefaultRegion:          getEnv("DEFAULT_REGION", "US"),
			CallRateCentsPerMinute: int64(getEnvAsInt("CALL_RATE_CENTS_PER_MINUTE", 15)),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if c.Webhook.SigningSecret == "" {
		return fmt.Errorf("webhook signing secret cannot be empty")
	}
	if c.Webhook.MaxAttempts < 1 {
		return fmt.Errorf("webhook max attempts must be at least 1, got %d", c.Webhook.MaxAttempts)
	}
	if c.Webhook.Workers < 1 {
		return fmt.Errorf("webhook workers must be at least 1, got %d", c.Webhook.Workers)
	}
	if c.Webhook.BackoffBase <= 0 {
		return fmt.Errorf("webhook backoff base must be positive")
	}

	if c.App.CallRateCentsPerMinute < 0 {
		return fmt.Errorf("call rate cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns the Redis host:port address
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}
