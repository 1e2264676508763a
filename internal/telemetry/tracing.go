package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samvad-hq/samvad-debts-client/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Logger is the subset of the application logger tracing setup reports to.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// InitTracing installs a global tracer provider exporting over OTLP. Exporter
// endpoints and headers come from the standard OTEL_EXPORTER_OTLP_* variables.
// When tracing is disabled, or the exporter cannot be built, only the
// propagator is installed and the returned shutdown does nothing.
func InitTracing(ctx context.Context, cfg *config.Config, log Logger) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if cfg == nil || !cfg.OTelEnabled {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.OTelServiceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg.OTelProtocol)
	if err != nil {
		if log != nil {
			log.ErrorObj("tracing init failed", "tracing_error", map[string]any{
				"protocol": cfg.OTelProtocol,
				"error":    err.Error(),
			})
		}
		return noopShutdown, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	if log != nil {
		log.InfoObj("tracing configured", "tracing", map[string]any{
			"protocol": cfg.OTelProtocol,
			"service":  cfg.OTelServiceName,
		})
	}
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	switch protocol {
	case "", "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// Transport wraps base with otelhttp so every debts API call gets a client span
// and trace context headers. A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}
