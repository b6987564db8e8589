package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: "debug"
admin:
  port: 8181
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("Expected default shutdown_timeout %v, got %v", DefaultShutdownTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Admin.Port != 8181 {
		t.Errorf("Expected admin port 8181, got %d", cfg.Admin.Port)
	}
	if cfg.Executor.MaxWorkers < 1 {
		t.Errorf("Expected positive default max_workers, got %d", cfg.Executor.MaxWorkers)
	}
}

func TestLoad_Durations(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
shutdown_timeout: 5s
drain_poll_interval: 10ms
watch:
  enabled: true
  debounce: 1s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.DrainPollInterval != 10*time.Millisecond {
		t.Errorf("Expected drain_poll_interval 10ms, got %v", cfg.DrainPollInterval)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != time.Second {
		t.Errorf("Unexpected watch config: %+v", cfg.Watch)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
shutdown_timeout = "12s"

[metrics]
enabled = true
port = 9191
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if cfg.ShutdownTimeout != 12*time.Second {
		t.Errorf("Expected shutdown_timeout 12s, got %v", cfg.ShutdownTimeout)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Admin.Port != DefaultAdminPort {
		t.Errorf("Expected default admin port, got %d", cfg.Admin.Port)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: INFO
`)
	t.Setenv("DITTOCORE_LOGGING_LEVEL", "warn")
	t.Setenv("DITTOCORE_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("DITTOCORE_EXECUTOR_MAX_WORKERS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected env level WARN, got %q", cfg.Logging.Level)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("Expected env shutdown_timeout 3s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Executor.MaxWorkers != 7 {
		t.Errorf("Expected env max_workers 7, got %d", cfg.Executor.MaxWorkers)
	}
}

func TestLoad_InvalidFails(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  format: xml
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for format xml")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "dittocore config init") {
		t.Errorf("Expected init instructions, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Admin.Port = 8282
	cfg.ShutdownTimeout = 45 * time.Second

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected 0600 permissions, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.Admin.Port != 8282 || loaded.ShutdownTimeout != 45*time.Second {
		t.Errorf("Round trip mismatch: port=%d timeout=%v", loaded.Admin.Port, loaded.ShutdownTimeout)
	}
}

func TestJWTSecret_EnvPrecedence(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Admin.JWT.Secret = "file-secret-file-secret-file-secret"

	if got := cfg.Admin.JWTSecret(); got != cfg.Admin.JWT.Secret {
		t.Errorf("Expected file secret, got %q", got)
	}

	t.Setenv(EnvAdminSecret, "env-secret-env-secret-env-secret-env")
	if got := cfg.Admin.JWTSecret(); got != "env-secret-env-secret-env-secret-env" {
		t.Errorf("Expected env secret, got %q", got)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/etc/x.yaml"); got != "/etc/x.yaml" {
		t.Errorf("Expected explicit path, got %q", got)
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ResolvePath(""); got != filepath.Join("/xdg", "dittocore", "config.yaml") {
		t.Errorf("Unexpected default path %q", got)
	}
}
