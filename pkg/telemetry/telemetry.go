// Package telemetry bootstraps an OpenTelemetry tracer provider for the
// server. Tracing is opt-in: with no collector endpoint configured, the
// provider is a no-op and every Start call costs nothing beyond a
// couple of pointer dereferences.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies this server's spans to a collector.
const ServiceName = "sf-mcp-server"

// shutdownTimeout bounds how long Shutdown waits for the exporter to
// flush queued spans.
const shutdownTimeout = 5 * time.Second

// Config controls whether and where spans are exported.
type Config struct {
	// Endpoint is an OTLP/HTTP collector address (host:port, no scheme).
	// Empty disables tracing: Provider becomes a no-op.
	Endpoint string
	// Insecure uses http instead of https when talking to Endpoint.
	Insecure bool
}

// Provider owns the process's tracer provider and its shutdown.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a Provider from cfg. With an empty Endpoint it
// returns a no-op provider without touching the network.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(ServiceName)}, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer(ServiceName)}, nil
}

// Tracer returns the tracer spans should be started against.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and releases the underlying tracer provider. A no-op
// provider (empty Endpoint) returns immediately.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}
