// Package config loads ostd configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "ostd.toml"

// EnvPrefix namespaces environment overrides, e.g. OST_ADDR=:8080.
const EnvPrefix = "OST_"

// Config holds all configuration for the server.
type Config struct {
	Addr           string        `koanf:"addr"`
	DatabaseURL    string        `koanf:"database_url"`
	Store          string        `koanf:"store"`
	MaxConns       int32         `koanf:"max_conns"`
	LogLevel       string        `koanf:"log_level"`
	LogFormat      string        `koanf:"log_format"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Defaults are the lowest-priority layer.
func Defaults() map[string]any {
	return map[string]any{
		"addr":            ":3000",
		"database_url":    "",
		"store":           "postgres",
		"max_conns":       20,
		"log_level":       "info",
		"log_format":      "text",
		"request_timeout": "10s",
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	// 2. Config file
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// 3. Environment. DATABASE_URL is honoured for compatibility with hosted Postgres.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		if err := k.Set("database_url", dsn); err != nil {
			return nil, fmt.Errorf("config: set database_url: %w", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	// 4. Flags. --database-url maps to database_url; unset flags never override.
	if f != nil {
		flagKey := func(fl *pflag.Flag) (string, any) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		}
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that koanf cannot type-check.
func (c *Config) Validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: store must be postgres or memory, got %q", c.Store)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// mapProvider adapts a plain map to koanf.Provider.
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	return p, nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

// RegisterFlags declares the server flags on fs. Their defaults mirror Defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("addr", d["addr"].(string), "listen address")
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.String("store", d["store"].(string), "storage backend: postgres or memory")
	fs.Int32("max-conns", int32(d["max_conns"].(int)), "maximum PostgreSQL connections")
	fs.String("log-level", d["log_level"].(string), "log level: debug, info, warn, error")
	fs.String("log-format", d["log_format"].(string), "log format: text or json")
	fs.Duration("request-timeout", 10*time.Second, "per-request timeout")
}
