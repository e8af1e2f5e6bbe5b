// Package telemetry sets up OpenTelemetry tracing for the server.
package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Telemetry struct {
	tp     *trace.TracerProvider
	tracer oteltrace.Tracer

	serviceName    string
	serviceVersion string
}

func NewTelemetry(ctx context.Context, serviceName, serviceVersion string, isDev bool) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	exporter, err := newExporter(ctx, isDev)
	if err != nil {
		return nil, err
	}

	return newTelemetry(trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), serviceName, serviceVersion), nil
}

func newTelemetry(tp *trace.TracerProvider, serviceName, serviceVersion string) *Telemetry {
	otel.SetTracerProvider(tp)
	return &Telemetry{
		tp:             tp,
		tracer:         tp.Tracer(serviceName, oteltrace.WithInstrumentationVersion(serviceVersion)),
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
	}
}

func (t *Telemetry) Tracer() oteltrace.Tracer {
	return t.tracer
}

func (t *Telemetry) TraceStart(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, name)
}

// Middleware opens a server span per request, named after the method.
func (t *Telemetry) Middleware() func(next http.Handler) http.Handler {
	return otelhttp.NewMiddleware(t.serviceName,
		otelhttp.WithTracerProvider(t.tp),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tp.Shutdown(ctx)
}
