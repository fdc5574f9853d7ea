package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/cells/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "cells.json"

	// DefaultAddr is the default server listen address.
	DefaultAddr = ":8080"

	// DefaultMetricsPath is the default Prometheus scrape path.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "cells"

	// DefaultWatchBuffer is the default per-watcher message buffer.
	DefaultWatchBuffer = 64

	// DefaultShutdownTimeout is the default graceful shutdown timeout.
	DefaultShutdownTimeout = "5s"
)

// Config represents the complete cells.json configuration.
type Config struct {
	// Sheet is the path to the sheet definition, relative to the config file.
	Sheet string `json:"sheet,omitempty"`

	// Debug enables debug logging of transaction boundaries.
	Debug bool `json:"debug,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the address to listen on.
	Addr string `json:"addr,omitempty"`

	// MetricsPath is the path the Prometheus handler is mounted at.
	MetricsPath string `json:"metricsPath,omitempty"`

	// WatchBuffer is the number of change messages buffered per watcher
	// before the connection is dropped as too slow.
	WatchBuffer int `json:"watchBuffer,omitempty"`

	// ShutdownTimeout is the graceful shutdown timeout (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `json:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled controls whether transactions are traced.
	Enabled bool `json:"enabled"`

	// TracerName is the name of the tracer.
	TracerName string `json:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MetricsPath:     DefaultMetricsPath,
			WatchBuffer:     DefaultWatchBuffer,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads cells.json from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C060").
				WithDetail("No config file at " + path).
				Wrap(err)
		}
		return nil, errors.New("C060").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C060").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file, or "." for defaults.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in zero values an explicit file may have left.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Server.WatchBuffer == 0 {
		c.Server.WatchBuffer = DefaultWatchBuffer
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return errors.New("C061").
			WithDetail("server.metricsPath must start with /")
	}
	if c.Server.WatchBuffer < 1 {
		return errors.New("C061").
			WithDetail("server.watchBuffer must be at least 1")
	}
	if d, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil || d < 0 {
		return errors.New("C061").
			WithDetail("server.shutdownTimeout must be a non-negative duration such as \"5s\"")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return errors.New("C061").
			WithDetail("log.level must be one of debug, info, warn, error").
			Wrap(err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("C061").
			WithDetail("log.format must be text or json")
	}
	return nil
}

// SheetPath returns the sheet path resolved against the config directory,
// or "" when no sheet is configured.
func (c *Config) SheetPath() string {
	if c.Sheet == "" || filepath.IsAbs(c.Sheet) {
		return c.Sheet
	}
	return filepath.Join(c.Dir(), c.Sheet)
}

// LogLevel returns the configured log level, info if it does not parse.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ShutdownTimeout returns the graceful shutdown timeout, 5s if it does not parse.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}
