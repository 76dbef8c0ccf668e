// Package config loads the application configuration for the playbook
// binary. Values come from an optional YAML file merged with environment
// variables (prefix PLAYBOOK_), with working defaults for every knob so a
// bare `playbook serve` runs an in-memory deployment.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backend names accepted by Config.Store.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Playbooks PlaybooksConfig `mapstructure:"playbooks"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// StoreConfig selects and parameterizes the session store backend.
type StoreConfig struct {
	// Backend is one of memory, file, sqlite, redis.
	Backend string `mapstructure:"backend"`
	// Path is the session directory for the file backend.
	Path string `mapstructure:"path"`
	// DSN is the database path for the sqlite backend.
	DSN   string      `mapstructure:"dsn"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig parameterizes the redis backend and its distributed locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// PlaybooksConfig locates the authored decision graphs.
type PlaybooksConfig struct {
	// Dir holds one YAML document per playbook id.
	Dir string `mapstructure:"dir"`
	// CacheSize bounds the parsed-graph LRU. Zero disables caching.
	CacheSize int `mapstructure:"cache_size"`
	// Catalog is an optional YAML file mapping terminal nodes and tags to
	// recommendation text, shared across playbooks.
	Catalog string `mapstructure:"catalog"`
}

// RiskConfig overrides the synthesizer's confidence thresholds.
type RiskConfig struct {
	LowFloor      float64 `mapstructure:"low_floor"`
	MediumFloor   float64 `mapstructure:"medium_floor"`
	FactorCeiling float64 `mapstructure:"factor_ceiling"`
}

// SecurityConfig enables the storage-side middleware.
type SecurityConfig struct {
	// EncryptionKey turns on AES-256-GCM field encryption when set.
	// Must be exactly 32 bytes.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys are previous encryption keys still accepted on read.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// PIIPatterns are regular expressions masked out of stored rationales.
	PIIPatterns []string `mapstructure:"pii_patterns"`
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file path. An empty path falls
// back to an optional playbook.yaml in the working directory; a missing
// default file is not an error, missing explicit files are.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PLAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("playbook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read playbook.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics", true)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.path", ".playbook/sessions")
	v.SetDefault("store.dsn", ".playbook/sessions.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "playbook:")
	v.SetDefault("store.redis.ttl", time.Duration(0))
	v.SetDefault("store.redis.lock_ttl", 30*time.Second)

	v.SetDefault("playbooks.dir", "./playbooks")
	v.SetDefault("playbooks.cache_size", 128)
	v.SetDefault("playbooks.catalog", "")

	v.SetDefault("risk.low_floor", 0.8)
	v.SetDefault("risk.medium_floor", 0.5)
	v.SetDefault("risk.factor_ceiling", 0.6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects configurations the factory could not wire: unknown
// backends, missing backend parameters, malformed keys, inverted risk
// thresholds.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want memory, file, sqlite, or redis)", c.Store.Backend)
	}

	if key := c.Security.EncryptionKey; key != "" && len(key) != 32 {
		return fmt.Errorf("security.encryption_key must be exactly 32 bytes, got %d", len(key))
	}
	for i, key := range c.Security.FallbackKeys {
		if len(key) != 32 {
			return fmt.Errorf("security.fallback_keys[%d] must be exactly 32 bytes, got %d", i, len(key))
		}
	}
	for i, pattern := range c.Security.PIIPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("security.pii_patterns[%d]: %v", i, err)
		}
	}

	for _, bound := range []struct {
		name  string
		value float64
	}{
		{"risk.low_floor", c.Risk.LowFloor},
		{"risk.medium_floor", c.Risk.MediumFloor},
		{"risk.factor_ceiling", c.Risk.FactorCeiling},
	} {
		if bound.value < 0 || bound.value > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %g", bound.name, bound.value)
		}
	}
	if c.Risk.LowFloor < c.Risk.MediumFloor {
		return fmt.Errorf("risk.low_floor (%g) must not be below risk.medium_floor (%g)",
			c.Risk.LowFloor, c.Risk.MediumFloor)
	}
	return nil
}
