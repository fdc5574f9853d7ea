package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/cells/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.MetricsPath != DefaultMetricsPath {
		t.Errorf("Server.MetricsPath = %q, want %q", cfg.Server.MetricsPath, DefaultMetricsPath)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics should be enabled by default")
	}
	if cfg.Tracing.Enabled {
		t.Error("Tracing should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Path() != "" || cfg.Dir() != "." {
		t.Errorf("defaults should have no path, got %q / %q", cfg.Path(), cfg.Dir())
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "sheet": "budget.yaml",
  "debug": true,
  "server": {
    "addr": "127.0.0.1:9000",
    "watchBuffer": 8
  },
  "metrics": {
    "enabled": false
  },
  "tracing": {
    "enabled": true,
    "tracerName": "budget"
  },
  "log": {
    "level": "debug"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:9000")
	}
	if cfg.Server.WatchBuffer != 8 {
		t.Errorf("Server.WatchBuffer = %d, want 8", cfg.Server.WatchBuffer)
	}
	if cfg.Server.MetricsPath != DefaultMetricsPath {
		t.Errorf("Server.MetricsPath = %q, want default", cfg.Server.MetricsPath)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want default", cfg.Metrics.Namespace)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.TracerName != "budget" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.SheetPath() != filepath.Join(tmpDir, "budget.yaml") {
		t.Errorf("SheetPath() = %q", cfg.SheetPath())
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !errors.HasCode(err, "C060") {
		t.Errorf("expected C060, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.HasCode(err, "C060") {
		t.Errorf("expected C060, got %v", err)
	}
	if !os.IsNotExist(unwrapAll(err)) {
		t.Error("expected the not-exist cause to be wrapped")
	}
}

func unwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err
		}
		err = u.Unwrap()
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"metrics path without slash", func(c *Config) { c.Server.MetricsPath = "metrics" }},
		{"zero watch buffer", func(c *Config) { c.Server.WatchBuffer = 0 }},
		{"bad shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = "soon" }},
		{"negative shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = "-1s" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !errors.HasCode(err, "C061") {
				t.Errorf("expected C061, got %v", err)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	cfg := New()

	if cfg.SheetPath() != "" {
		t.Errorf("SheetPath() = %q, want empty", cfg.SheetPath())
	}
	cfg.Sheet = "/abs/sheet.yaml"
	if cfg.SheetPath() != "/abs/sheet.yaml" {
		t.Errorf("SheetPath() = %q", cfg.SheetPath())
	}
	cfg.Sheet = "rel.yaml"
	if cfg.SheetPath() != "rel.yaml" {
		t.Errorf("SheetPath() = %q", cfg.SheetPath())
	}

	if cfg.ShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}
	cfg.Server.ShutdownTimeout = "250ms"
	if cfg.ShutdownTimeout() != 250*time.Millisecond {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}
	cfg.Server.ShutdownTimeout = "bad"
	if cfg.ShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}

	cfg.Log.Level = "WARN"
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel() = %v, want warn", cfg.LogLevel())
	}
	cfg.Log.Level = "nope"
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()
	if Exists(tmpDir) {
		t.Error("Exists() should be false for empty dir")
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if !Exists(tmpDir) {
		t.Error("Exists() should be true")
	}
}
