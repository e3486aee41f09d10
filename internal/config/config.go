// Package config loads the calculator service configuration: built-in
// defaults, then an optional YAML or TOML file, then CALC_* environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"go-chi-calculator/internal/observability"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" toml:"cors_origins"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level       string `yaml:"level" toml:"level"`
	Development bool   `yaml:"development" toml:"development"`
}

// TelemetryConfig switches the OTLP/HTTP exporters on and off.
type TelemetryConfig struct {
	Traces      bool   `yaml:"traces" toml:"traces"`
	Metrics     bool   `yaml:"metrics" toml:"metrics"`
	Logs        bool   `yaml:"logs" toml:"logs"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// StoreConfig selects where sessions live.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: observability.DefaultServiceName,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
		},
	}
}

// Load reads path (if not empty) over the defaults and applies the process
// environment.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse config file %s: unknown keys %v", path, undecoded)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension %q", path, ext)
	}
	return nil
}

// applyEnv overrides fields from CALC_* variables and OTEL_SERVICE_NAME.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("CALC_ADDR", &c.Server.Addr)
	str("CALC_LOG_LEVEL", &c.Log.Level)
	str("OTEL_SERVICE_NAME", &c.Telemetry.ServiceName)
	str("CALC_STORE_DRIVER", &c.Store.Driver)
	str("CALC_STORE_DSN", &c.Store.DSN)

	if v, ok := lookup("CALC_SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CALC_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.Server.ShutdownTimeout = d
	}

	if v, ok := lookup("CALC_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}

	for key, dst := range map[string]*bool{
		"CALC_LOG_DEVELOPMENT":   &c.Log.Development,
		"CALC_TELEMETRY_TRACES":  &c.Telemetry.Traces,
		"CALC_TELEMETRY_METRICS": &c.Telemetry.Metrics,
		"CALC_TELEMETRY_LOGS":    &c.Telemetry.Logs,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Telemetry.ServiceName == "" {
		return errors.New("telemetry.service_name is required")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Store.Driver)
	}
	return nil
}

// TelemetryEnabled reports whether any OTLP exporter is switched on.
func (c *Config) TelemetryEnabled() bool {
	return c.Telemetry.Traces || c.Telemetry.Metrics || c.Telemetry.Logs
}
