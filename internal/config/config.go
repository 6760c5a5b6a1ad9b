package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vjranagit/ecoatlas/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Ranking RankingConfig `yaml:"ranking"`
	Logging LoggingConfig `yaml:"logging"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr  string        `yaml:"listen_addr"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	Path             string `yaml:"path"`
	CompressionLevel int    `yaml:"compression_level"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
}

// CacheConfig sizes the entity identifier cache
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// RankingConfig holds ranking defaults
type RankingConfig struct {
	DefaultN int `yaml:"default_n"`
}

// LoggingConfig selects the log level and encoder
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// CatalogConfig points at an optional YAML metric overlay
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  getEnv("ECOATLAS_LISTEN_ADDR", ":8080"),
			Timeout:     getEnvDuration("ECOATLAS_SERVER_TIMEOUT", 30*time.Second),
			Concurrency: getEnvInt("ECOATLAS_CONCURRENCY", 8),
		},
		Storage: StorageConfig{
			Driver:           getEnv("ECOATLAS_STORAGE_DRIVER", storage.DriverSQLite),
			DSN:              getEnv("ECOATLAS_STORAGE_DSN", ""),
			Path:             getEnv("ECOATLAS_STORAGE_PATH", "./data"),
			CompressionLevel: getEnvInt("ECOATLAS_COMPRESSION_LEVEL", 3),
			MaxOpenConns:     getEnvInt("ECOATLAS_MAX_OPEN_CONNS", 4),
		},
		Cache: CacheConfig{
			Capacity: getEnvInt("ECOATLAS_CACHE_CAPACITY", 1024),
			TTL:      getEnvDuration("ECOATLAS_CACHE_TTL", time.Hour),
		},
		Ranking: RankingConfig{
			DefaultN: getEnvInt("ECOATLAS_RANKING_N", 5),
		},
		Logging: LoggingConfig{
			Level:       getEnv("ECOATLAS_LOG_LEVEL", "info"),
			Development: getEnvBool("ECOATLAS_LOG_DEVELOPMENT", false),
		},
		Catalog: CatalogConfig{
			Path: getEnv("ECOATLAS_CATALOG_PATH", ""),
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Driver:           c.Storage.Driver,
		DSN:              c.Storage.DSN,
		Path:             c.Storage.Path,
		CompressionLevel: c.Storage.CompressionLevel,
		MaxOpenConns:     c.Storage.MaxOpenConns,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Server.Concurrency < 1 {
		return fmt.Errorf("server concurrency must be at least 1")
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverBadger:
		if c.Storage.Path == "" && c.Storage.DSN == "" {
			return fmt.Errorf("storage path is required for %s", c.Storage.Driver)
		}
	case storage.DriverPgx:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for pgx")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}

	if c.Ranking.DefaultN < 1 {
		return fmt.Errorf("ranking default_n must be at least 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
