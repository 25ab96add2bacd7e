// Package observability configures OpenTelemetry tracing for both runtimes.
//
// The HTTP server exports spans through a batching processor. Lambda
// invocations may be frozen as soon as the handler returns, so event mode
// exports synchronously instead.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-user-records/internal/config"
)

// Replaced in tests.
var (
	newExporter = func(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
		transport := otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
		if cfg.Insecure {
			transport = otlptracegrpc.WithInsecure()
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), transport)
	}

	newResource = func(ctx context.Context, service, version, env string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(env),
		))
	}
)

// SetupOTel installs a global tracer provider and W3C propagators for the
// runtime, returning its shutdown. Disabled tracing returns a no-op and
// leaves the globals alone, as does any error.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, mode config.RuntimeMode, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := newResource(ctx, cfg.ServiceName, version, mode.Environment())
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		exportOption(mode, exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func exportOption(mode config.RuntimeMode, exp sdktrace.SpanExporter) sdktrace.TracerProviderOption {
	if mode == config.ModeEvent {
		return sdktrace.WithSyncer(exp)
	}
	return sdktrace.WithBatcher(exp)
}
