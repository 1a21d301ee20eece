package observability

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/nurpath/nurpath/internal/model"
)

// TracerName is the instrumentation scope of all nurpath spans
const TracerName = "github.com/nurpath/nurpath"

// ErrUnknownExporter is returned for an unsupported exporter name
var ErrUnknownExporter = errors.New("unknown trace exporter")

// ShutdownFunc flushes and stops telemetry
type ShutdownFunc func(ctx context.Context) error

// SetupTracing installs the global tracer provider. With exporter "none"
// the default no-op provider stays in place.
func SetupTracing(cfg model.TelemetryConfig, version string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.TraceExporter {
	case "", "none":
		return noop, nil
	case "stdout":
	default:
		return noop, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	// stdout carries command output, spans go to stderr
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return noop, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the nurpath tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
