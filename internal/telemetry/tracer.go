// Package telemetry configures OpenTelemetry tracing for vendor calls.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans emitted by the gateway.
const InstrumentationName = "github.com/Joseph-Rai/translationapis"

// Options configures Setup.
type Options struct {
	ServiceName string

	// Writer receives exported spans as JSON. Defaults to stdout.
	Writer io.Writer

	// Exporter overrides the stdout exporter.
	Exporter sdktrace.SpanExporter

	Logger *slog.Logger
}

// Setup installs a global tracer provider. Callers must Shutdown the returned
// provider to flush pending spans.
func Setup(opts Options) (*sdktrace.TracerProvider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exporter := opts.Exporter
	if exporter == nil {
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, err
		}
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", slog.String("service", opts.ServiceName))
	return tp, nil
}

// StartSpan starts a span on the gateway tracer. Before Setup the global
// no-op provider is used.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks span failed when err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
