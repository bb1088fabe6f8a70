package config

// TracingConfig holds OTLP tracing configuration.
//
// Spans export to a local OTLP/HTTP collector endpoint. See
// internal/observability for the exporter wiring.
type TracingConfig struct {
	// Enabled turns span export on (default: off)
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the reported service name (default: mediblaze)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
