// Package config provides configuration management for the codec service.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the protodyn service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Imports ImportsConfig `yaml:"imports"`
	Schemas SchemasConfig `yaml:"schemas"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Packing PackingConfig `yaml:"packing"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
}

// ImportsConfig controls .proto import resolution.
type ImportsConfig struct {
	// Path is the local directory searched before any remote fallback.
	Path string `yaml:"path"`
	// RemoteBase overrides the default remote import URL prefix.
	RemoteBase string `yaml:"remote_base"`
	// Timeout is a remote-fetch bound in seconds. It is not passed to the
	// importer: remote fetches use the HTTP fetcher's fixed 30-second
	// client timeout.
	Timeout int `yaml:"timeout"`
}

// SchemasConfig controls schema preloading from disk.
type SchemasConfig struct {
	// Dir is a directory of .proto files registered at startup.
	Dir string `yaml:"dir"`
	// Watch re-registers schemas when files under Dir change.
	Watch bool `yaml:"watch"`
}

// CacheConfig controls the parsed-schema cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
	TTL      int `yaml:"ttl"` // seconds
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string          `yaml:"level"`
	Format string          `yaml:"format"` // json, text
	File   FileLogConfig   `yaml:"file"`
	Syslog SyslogLogConfig `yaml:"syslog"`
}

// FileLogConfig enables rolling-file log output.
type FileLogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// SyslogLogConfig enables syslog log output.
type SyslogLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Network string `yaml:"network"` // empty for local syslog, else tcp/udp
	Address string `yaml:"address"`
	Tag     string `yaml:"tag"`
}

// PackingConfig selects the Any packing backend.
type PackingConfig struct {
	Backend string `yaml:"backend"` // pickle, jsonpickle
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8082,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Imports: ImportsConfig{
			Timeout: 30,
		},
		Cache: CacheConfig{
			Capacity: 256,
			TTL:      3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Syslog: SyslogLogConfig{
				Network: "udp",
				Tag:     "protodyn",
			},
		},
		Packing: PackingConfig{
			Backend: "pickle",
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path comes from a command-line argument
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROTODYN_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PROTODYN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PROTODYN_IMPORT_PATH"); v != "" {
		cfg.Imports.Path = v
	}
	if v := os.Getenv("PROTODYN_SCHEMA_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("PROTODYN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PROTODYN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PROTODYN_PACKING_BACKEND"); v != "" {
		cfg.Packing.Backend = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Packing.Backend {
	case "pickle", "jsonpickle":
	default:
		return fmt.Errorf("invalid packing backend: %q", c.Packing.Backend)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("invalid cache capacity: %d", c.Cache.Capacity)
	}
	return nil
}

// Address returns the server bind address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
