// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Host string
	Port string
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type CollectorConfig struct {
	// Schedule is a robfig/cron spec, e.g. "@every 30s".
	Schedule string
	// ProviderURL is the base URL of the price provider API.
	ProviderURL string
	// RequestTimeout bounds a single outbound provider call.
	RequestTimeout time.Duration
	// Retention, when positive, prunes rows older than this horizon after
	// each successful run. Zero disables pruning.
	Retention time.Duration
}

type QueryConfig struct {
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Collector CollectorConfig
	Query     QueryConfig
	Logging   LoggingConfig
}

// Load reads configuration from the environment, applying defaults that match
// a local development setup.
func Load() (*Config, error) {
	var errs []error
	cfg := &Config{
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "prices"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 5, &errs),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 1, &errs),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0, &errs),
		},
		Server: ServerConfig{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: getEnv("PORT", "8080"),
		},
		Collector: CollectorConfig{
			Schedule:       getEnv("COLLECT_SCHEDULE", "@every 30s"),
			ProviderURL:    getEnv("PROVIDER_URL", "https://api.coingecko.com/api/v3"),
			RequestTimeout: getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second, &errs),
			Retention:      getEnvDuration("PRICE_RETENTION", 0, &errs),
		},
		Query: QueryConfig{
			CacheTTL:       getEnvDuration("CACHE_TTL", 30*time.Second, &errs),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1, &errs),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 1, &errs),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.Database.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}
	if cfg.Query.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive")
	}
	if cfg.Query.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if cfg.Query.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be positive")
	}
	if cfg.Collector.RequestTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	// A retention horizon shorter than a few collection cycles would race the
	// collector and could delete the only row an asset has.
	if r := cfg.Collector.Retention; r != 0 && r < time.Minute {
		return nil, fmt.Errorf("PRICE_RETENTION must be at least 1m when set")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// The typed helpers reject unparseable values instead of silently using the
// default: a typo like CACHE_TTL=30x is a misconfiguration, not a request for
// 30s. Parse errors accumulate in errs so Load reports them all at once.

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a number", key, raw))
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return defaultValue
	}
	return v
}
