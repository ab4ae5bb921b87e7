// Package telemetry wires OpenTelemetry tracing for commands, session
// operations and form submissions. The API transport is traced
// separately by otelhttp.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/felixgeelhaar/adminconsole"

type installed struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

var current atomic.Pointer[installed]

func nopShutdown(context.Context) error { return nil }

// InitProvider installs the tracer provider described by cfg and returns
// its shutdown function, which flushes pending spans.
func InitProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		current.Store(&installed{provider: noop.NewTracerProvider(), shutdown: nopShutdown})
		return nopShutdown, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.Service),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}

	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	current.Store(&installed{provider: tp, shutdown: tp.Shutdown})
	return tp.Shutdown, nil
}

// Shutdown flushes the installed provider, if any.
func Shutdown(ctx context.Context) error {
	if in := current.Load(); in != nil {
		return in.shutdown(ctx)
	}
	return nil
}

// SetTracerProvider makes the span helpers use tp. nil restores noops.
func SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		current.Store(nil)
		return
	}
	current.Store(&installed{provider: tp, shutdown: nopShutdown})
}

func tracer() trace.Tracer {
	if in := current.Load(); in != nil {
		return in.provider.Tracer(instrumentationName)
	}
	return noop.NewTracerProvider().Tracer(instrumentationName)
}
