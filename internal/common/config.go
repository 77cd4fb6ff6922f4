package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/simaogato/wealthflow-analytics/internal/domain"
)

// Config holds all configuration for the analytics server
type Config struct {
	Environment     string          `toml:"environment"`
	DefaultCurrency string          `toml:"default_currency"` // Pivot currency of the exchange-rate graph
	Server          ServerConfig    `toml:"server"`
	Database        DatabaseConfig  `toml:"database"`
	Storage         StorageConfig   `toml:"storage"`
	Cache           CacheConfig     `toml:"cache"`
	Portfolio       PortfolioConfig `toml:"portfolio"`
	Logging         LoggingConfig   `toml:"logging"`
}

// ServerConfig holds gRPC listener configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Address returns host:port for net.Listen
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
// ConnStr wins over the individual fields when set.
type DatabaseConfig struct {
	ConnStr  string `toml:"conn_str"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// ConnectionString returns the lib/pq connection string
func (c DatabaseConfig) ConnectionString() string {
	if c.ConnStr != "" {
		return c.ConnStr
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// StorageConfig selects the data source backend ("postgres" or "memory").
// SeedFile is a TOML fixture loaded into the memory backend at startup.
type StorageConfig struct {
	Kind     string `toml:"kind"`
	SeedFile string `toml:"seed_file"`
}

// CacheConfig holds the exchange-rate cache settings
type CacheConfig struct {
	RateTTL         string `toml:"rate_ttl"`
	CleanupInterval string `toml:"cleanup_interval"`
}

// GetRateTTL parses RateTTL, defaulting to 24h
func (c CacheConfig) GetRateTTL() time.Duration {
	return parseDurationOr(c.RateTTL, 24*time.Hour)
}

// GetCleanupInterval parses CleanupInterval, defaulting to 48h
func (c CacheConfig) GetCleanupInterval() time.Duration {
	return parseDurationOr(c.CleanupInterval, 48*time.Hour)
}

// PortfolioConfig holds the portfolio aggregator settings
type PortfolioConfig struct {
	Workers int `toml:"workers"` // Max positions computed concurrently
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DefaultCurrency: "EUR",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "wealthflow",
			SSLMode:  "disable",
		},
		Storage: StorageConfig{Kind: "postgres"},
		Cache: CacheConfig{
			RateTTL:         "24h",
			CleanupInterval: "48h",
		},
		Portfolio: PortfolioConfig{Workers: 8},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from TOML files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEALTHFLOW_ENV"); env != "" {
		config.Environment = env
	}

	if dc := os.Getenv("WEALTHFLOW_DEFAULT_CURRENCY"); dc != "" {
		config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(dc))
	}

	if host := os.Getenv("WEALTHFLOW_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("WEALTHFLOW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if kind := os.Getenv("WEALTHFLOW_STORAGE"); kind != "" {
		config.Storage.Kind = strings.ToLower(kind)
	}

	if seed := os.Getenv("WEALTHFLOW_SEED_FILE"); seed != "" {
		config.Storage.SeedFile = seed
	}

	if level := os.Getenv("WEALTHFLOW_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if workers := os.Getenv("WEALTHFLOW_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Portfolio.Workers = w
		}
	}

	if ttl := os.Getenv("WEALTHFLOW_RATE_TTL"); ttl != "" {
		config.Cache.RateTTL = ttl
	}

	// Database variables keep the names used by the docker setup
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		config.Database.ConnStr = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Database.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		config.Database.SSLMode = v
	}
}

// Validate checks the settings the engine cannot run without
func (c *Config) Validate() error {
	if err := domain.ValidateCurrency(c.DefaultCurrency); err != nil {
		return fmt.Errorf("failed to validate default_currency: %w", err)
	}

	switch c.Storage.Kind {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage.Kind)
	}

	if c.Portfolio.Workers < 1 {
		c.Portfolio.Workers = 1
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
