package telemetry

import "github.com/marmos91/dittocore/pkg/config"

// ServiceName is the service name reported to trace and profile backends.
const ServiceName = "dittocore"

// Config holds OpenTelemetry configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		ServiceName:    ServiceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// FromConfig maps the telemetry section of the server configuration.
func FromConfig(c config.TelemetryConfig, version string) Config {
	return Config{
		Enabled:        c.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}

// ProfilingFromConfig maps the profiling subsection of the server configuration.
func ProfilingFromConfig(c config.TelemetryConfig, version string) ProfilingConfig {
	return ProfilingConfig{
		Enabled:        c.Profiling.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Profiling.Endpoint,
		ProfileTypes:   append([]string(nil), c.Profiling.ProfileTypes...),
	}
}
