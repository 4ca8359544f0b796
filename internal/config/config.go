package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host         string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"10485760" yaml:"max_body_bytes"`
}

// StoreConfig holds file store configuration.
type StoreConfig struct {
	BaseDir              string        `envconfig:"VAULT_BASE_DIR" default:"/data" yaml:"base_dir"`
	MaxFileSize          int64         `envconfig:"VAULT_MAX_FILE_SIZE" default:"104857600" yaml:"max_file_size"`
	CacheSize            int           `envconfig:"VAULT_CACHE_SIZE" default:"100" yaml:"cache_size"`
	CacheTTL             time.Duration `envconfig:"VAULT_CACHE_TTL" default:"5m" yaml:"cache_ttl"`
	PersistEvery         int           `envconfig:"VAULT_PERSIST_EVERY" default:"10" yaml:"persist_every"`
	Versioning           bool          `envconfig:"VAULT_VERSIONING" default:"true" yaml:"versioning"`
	ArchiveRetentionDays int           `envconfig:"VAULT_ARCHIVE_RETENTION_DAYS" default:"30" yaml:"archive_retention_days"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ApplyFile overlays settings from a YAML file onto cfg. Fields absent
// from the file keep their current values, so the environment remains
// the base layer.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ArchiveRetention returns the archive retention window as a duration.
func (c *Config) ArchiveRetention() time.Duration {
	return time.Duration(c.Store.ArchiveRetentionDays) * 24 * time.Hour
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "0.0.0.0",
			MaxBodyBytes: 10 * 1024 * 1024,
		},
		Store: StoreConfig{
			BaseDir:              "/data",
			MaxFileSize:          100 * 1024 * 1024,
			CacheSize:            100,
			CacheTTL:             5 * time.Minute,
			PersistEvery:         10,
			Versioning:           true,
			ArchiveRetentionDays: 30,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
