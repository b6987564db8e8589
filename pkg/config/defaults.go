package config

import (
	"runtime"
	"strings"
	"time"
)

// Default values for unset configuration fields.
const (
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultDrainPollInterval = 50 * time.Millisecond
	DefaultAdminPort         = 8080
	DefaultMetricsPort       = 9090
	DefaultTokenDuration     = time.Hour
	DefaultWatchDebounce     = 500 * time.Millisecond
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLifecycleDefaults(cfg)
	applyExecutorDefaults(&cfg.Executor)
	applyAdminDefaults(&cfg.Admin)
	applyMetricsDefaults(&cfg.Metrics)
	applyWatchDefaults(&cfg.Watch)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 28
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyLifecycleDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.DrainPollInterval == 0 {
		cfg.DrainPollInterval = DefaultDrainPollInterval
	}
}

func applyExecutorDefaults(cfg *ExecutorConfig) {
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = runtime.NumCPU() * 4
	}
}

func applyAdminDefaults(cfg *AdminConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultAdminPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.JWT.TokenDuration == 0 {
		cfg.JWT.TokenDuration = DefaultTokenDuration
	}
}

// Metrics stay opt-in; the port is only filled in once they are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyWatchDefaults(cfg *WatchConfig) {
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultWatchDebounce
	}
}

// GetDefaultConfig returns a Config with all default values applied.
// Used by `config init` and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
