// Package observability provides OpenTelemetry integration for distributed
// tracing.
//
// Spans are exported over OTLP/HTTP to a local collector (an OpenTelemetry
// Collector, a vendor agent, anything speaking OTLP on the standard 4318
// port). The exporter hooks into Genkit's TracerProvider, so agent turns,
// tool calls, and retriever lookups all show up as spans without extra
// instrumentation.
//
// Tracing is best-effort: if the exporter cannot be created the service
// runs without it rather than failing startup.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mediblaze/mediblaze/internal/config"
)

// DefaultEndpoint is the standard OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// DefaultServiceName is the service name reported when none is configured.
const DefaultServiceName = "mediblaze"

// Setup registers an OTLP/HTTP span exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans; callers should
// invoke it during graceful shutdown. An unreachable collector does not
// cause an error: exporter batching retries in the background and drops
// spans if the collector never appears.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// Genkit's TracerProvider reads the standard OTEL environment variables
	// for resource attribution.
	_ = os.Setenv("OTEL_SERVICE_NAME", serviceName)
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
