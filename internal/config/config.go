package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yockey88/DotOther/internal/logging"
)

// Config represents the DotOther configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RuntimeConfig represents the managed runtime session
type RuntimeConfig struct {
	ContextName string   `mapstructure:"context_name"`
	Assemblies  []string `mapstructure:"assemblies"`
}

// SnapshotConfig selects and configures the snapshot store
type SnapshotConfig struct {
	Backend string        `mapstructure:"backend"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// Snapshot backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// New returns a viper instance carrying the defaults and environment
// bindings. Callers may bind flags to it before calling Read.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("runtime.context_name", "DotOtherContext")
	v.SetDefault("runtime.assemblies", []string{})
	v.SetDefault("snapshot.backend", BackendMemory)
	v.SetDefault("snapshot.prefix", "dotother:")
	v.SetDefault("snapshot.ttl", time.Hour)
	v.SetDefault("snapshot.redis.addr", "localhost:6379")
	v.SetDefault("snapshot.redis.password", "")
	v.SetDefault("snapshot.redis.db", 0)
	v.SetDefault("snapshot.sqlite.path", "dotother-snapshots.db")

	// DOTOTHER_SNAPSHOT_REDIS_ADDR -> snapshot.redis.addr
	v.SetEnvPrefix("dotother")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from path, or from dotother.{yaml,yml,toml,json}
// in the working directory when path is empty.
func Load(path string) (*Config, error) {
	return Read(New(), path)
}

// Read loads the configuration through v.
func Read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dotother")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogOptions converts the log section into logging options.
func (c *Config) LogOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{Level: level, Development: c.Log.Development}, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if strings.TrimSpace(cfg.Runtime.ContextName) == "" {
		return fmt.Errorf("runtime.context_name must not be empty")
	}

	switch cfg.Snapshot.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Snapshot.Redis.Addr == "" {
			return fmt.Errorf("snapshot.redis.addr is required for the redis backend")
		}
	case BackendSQLite:
		if cfg.Snapshot.SQLite.Path == "" {
			return fmt.Errorf("snapshot.sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be one of memory, redis, sqlite, got: %s", cfg.Snapshot.Backend)
	}

	if cfg.Snapshot.TTL <= 0 {
		return fmt.Errorf("snapshot.ttl must be positive, got: %s", cfg.Snapshot.TTL)
	}
	return nil
}
