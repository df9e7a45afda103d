package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// OTLP transport protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// TracingConfig configures the OTLP tracer provider.
// Most users only need ServiceName and Endpoint.
type TracingConfig struct {
	// ServiceName identifies the service in traces
	ServiceName string

	// ServiceVersion is shown alongside traces
	ServiceVersion string

	// Endpoint is the collector address, e.g. "localhost:4317" (grpc) or "localhost:4318" (http)
	Endpoint string

	// Protocol is ProtocolGRPC or ProtocolHTTP
	Protocol string

	// Insecure disables TLS. Use for local development only.
	Insecure bool

	// Headers are sent with every export request
	Headers map[string]string

	// SampleRate in [0,1]; 1 records every trace
	SampleRate float64

	// BatchTimeout is how long spans wait before export
	BatchTimeout time.Duration
}

// DefaultTracingConfig returns an insecure gRPC config sampling every trace.
func DefaultTracingConfig(serviceName, endpoint string) TracingConfig {
	return TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "unknown",
		Endpoint:       endpoint,
		Protocol:       ProtocolGRPC,
		Insecure:       true,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// NewTracerProvider creates an OTLP tracer provider and installs it, with the
// W3C trace context propagator, as the global provider.
//
// Always call Shutdown before exit to flush pending spans:
//
//	tp, err := observability.NewTracerProvider(ctx, observability.DefaultTracingConfig("chronorag", "localhost:4317"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Shutdown(context.Background())
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("otlp endpoint is required")
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider, nil
}

// Sampler maps a rate to a parent-based sampler.
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0.0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", ErrorKind(err)))
	}
	span.End()
}

// ErrorKind classifies an error for span attributes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func newExporter(ctx context.Context, cfg TracingConfig) (*otlptrace.Exporter, error) {
	switch cfg.Protocol {
	case ProtocolHTTP:
		options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			options = append(options, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			options = append(options, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, options...)
	case ProtocolGRPC, "":
		options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			options = append(options, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			options = append(options, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		return otlptracegrpc.New(ctx, options...)
	default:
		return nil, fmt.Errorf("unknown otlp protocol %q", cfg.Protocol)
	}
}
