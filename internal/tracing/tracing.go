// Package tracing wires OpenTelemetry for the HTTP layer. Tracing is off by
// default; the stdout exporter is meant for local debugging.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	AttrEventID   = "eventreg.event.id"
	AttrUserID    = "eventreg.user.id"
	AttrErrorType = "error.type"
	AttrStatus    = "eventreg.status_code"
)

// ServiceName identifies the service in exported spans.
const ServiceName = "eventreg"

// Provider owns the tracer provider and the tracer handed to handlers.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider builds a provider for the named exporter: "none" (or empty)
// yields a no-op tracer, "stdout" pretty-prints spans to stdout.
func NewProvider(exporter string) (*Provider, error) {
	switch exporter {
	case "", "none":
		return &Provider{tracer: noop.NewTracerProvider().Tracer(ServiceName)}, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return newSDKProvider(sdktrace.WithBatcher(exp)), nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", exporter)
	}
}

// NewProviderWithExporter builds a provider that exports synchronously to exp.
func NewProviderWithExporter(exp sdktrace.SpanExporter) *Provider {
	return newSDKProvider(sdktrace.WithSyncer(exp))
}

func newSDKProvider(export sdktrace.TracerProviderOption) *Provider {
	provider := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
	)
	otel.SetTracerProvider(provider)
	return &Provider{provider: provider, tracer: provider.Tracer(ServiceName)}
}

// Tracer returns the configured tracer. It is never nil.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
