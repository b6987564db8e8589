package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/dittocore/internal/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
// Example: DITTOCORE_LOGGING_LEVEL=DEBUG
const EnvPrefix = "DITTOCORE"

// EnvAdminSecret overrides Admin.JWT.Secret when set.
const EnvAdminSecret = "DITTOCORE_ADMIN_SECRET"

// Config represents the dittocore configuration.
//
// It is read once at startup and again on every reload; a running
// process never mutates it.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOCORE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" json:"logging" yaml:"logging" toml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry" toml:"telemetry"`

	// ShutdownTimeout bounds how long the drain phase waits for in-flight work
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// DrainPollInterval is how often the drain phase re-reads the active counters
	DrainPollInterval time.Duration `mapstructure:"drain_poll_interval" validate:"required,gt=0" json:"drain_poll_interval" yaml:"drain_poll_interval" toml:"drain_poll_interval"`

	// Executor sizes the worker pool backing the runtime handle
	Executor ExecutorConfig `mapstructure:"executor" json:"executor" yaml:"executor" toml:"executor"`

	// Admin configures the admin HTTP API
	Admin AdminConfig `mapstructure:"admin" json:"admin" yaml:"admin" toml:"admin"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" yaml:"metrics" toml:"metrics"`

	// Watch controls reload-on-change of the configuration file
	Watch WatchConfig `mapstructure:"watch" json:"watch" yaml:"watch" toml:"watch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" json:"level" yaml:"level" toml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" json:"format" yaml:"format" toml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" json:"output" yaml:"output" toml:"output"`

	// MaxSizeMB rotates a file output once it reaches this size.
	// Default: 100
	MaxSizeMB int `mapstructure:"max_size_mb" validate:"gte=0" json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	// Default: 3
	MaxBackups int `mapstructure:"max_backups" validate:"gte=0" json:"max_backups" yaml:"max_backups" toml:"max_backups"`

	// MaxAgeDays removes rotated files older than this.
	// Default: 28
	MaxAgeDays int `mapstructure:"max_age_days" validate:"gte=0" json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `mapstructure:"compress" json:"compress" yaml:"compress" toml:"compress"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" json:"endpoint" yaml:"endpoint" toml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" json:"insecure" yaml:"insecure" toml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" json:"profiling" yaml:"profiling" toml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" json:"endpoint" yaml:"endpoint" toml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" json:"profile_types" yaml:"profile_types" toml:"profile_types"`
}

// ExecutorConfig sizes the bounded worker pool.
type ExecutorConfig struct {
	// MaxWorkers caps concurrently running spawned tasks.
	// Default: number of CPUs * 4
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=1" json:"max_workers" yaml:"max_workers" toml:"max_workers"`
}

// AdminConfig configures the admin REST API HTTP server.
type AdminConfig struct {
	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" json:"port" yaml:"port" toml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. The signal stream is exempt.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum keep-alive idle time.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`

	// JWT configures admin token validation.
	JWT JWTConfig `mapstructure:"jwt" json:"jwt" yaml:"jwt" toml:"jwt"`
}

// JWTConfig configures JWT token generation and validation.
type JWTConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	// DITTOCORE_ADMIN_SECRET takes precedence over the file value.
	Secret string `mapstructure:"secret" validate:"omitempty,min=32" json:"secret" yaml:"secret" toml:"secret"`

	// TokenDuration is the lifetime of tokens minted by `dittocore token`.
	// Default: 1h
	TokenDuration time.Duration `mapstructure:"token_duration" json:"token_duration" yaml:"token_duration" toml:"token_duration"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" json:"port" yaml:"port" toml:"port"`
}

// WatchConfig controls whether edits to the configuration file trigger a reload.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`

	// Debounce coalesces bursts of file events (editors often write twice).
	// Default: 500ms
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce" toml:"debounce"`
}

// JWTSecret returns the JWT secret, preferring the environment variable.
// Returns empty string if neither is set.
func (c *AdminConfig) JWTSecret() string {
	if env := os.Getenv(EnvAdminSecret); env != "" {
		if c.JWT.Secret != "" && c.JWT.Secret != env {
			logger.Warn("JWT secret from environment variable overrides config file value",
				"env_var", EnvAdminSecret)
		}
		return env
	}
	return c.JWT.Secret
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is not
// an error; defaults (plus environment overrides) are used instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration, failing with instructions when the given
// (or default) config file does not exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittocore config init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittocore <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dittocore config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML. The file is created 0600 since it may
// carry the admin JWT secret.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// bindEnvKeys registers every leaf key with viper. AutomaticEnv alone only
// consults the environment for keys viper already knows about, so without
// this a DITTOCORE_* variable would be ignored when the file omits the key.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
// Raw integers are taken as nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dittocore, ~/.config/dittocore, or "."
// when no home directory can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittocore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittocore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// ResolvePath returns the file Load would read for configPath.
func ResolvePath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	return GetDefaultConfigPath()
}
