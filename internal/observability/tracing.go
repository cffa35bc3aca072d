package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures distributed tracing
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Exporter       string  `yaml:"exporter"` // otlp, zipkin
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `yaml:"zipkin_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"` // 0.0 to 1.0
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
}

// TracerProvider owns the tracing pipeline lifecycle. Spans are opened
// through the package-level StartSpan, which reads the globally registered
// provider; a disabled TracerProvider registers nothing and spans stay no-ops.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider creates a new tracer provider and, when enabled,
// registers it as the global provider.
func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{}, nil
	}

	// Default service name
	if config.ServiceName == "" {
		config.ServiceName = "itguru"
	}

	// Default sample rate
	if config.SampleRate <= 0 || config.SampleRate > 1.0 {
		config.SampleRate = 1.0
	}

	// Create exporter based on config
	var exporter sdktrace.SpanExporter
	var err error

	switch config.Exporter {
	case "otlp":
		endpoint := config.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "zipkin":
		endpoint := config.ZipkinEndpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create trace provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// StartSpan opens a span on the globally registered tracer provider,
// attaching the session id carried by ctx when present. With tracing
// disabled no provider is registered and the span is a no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	return otel.Tracer("itguru").Start(ctx, name, trace.WithAttributes(attrs...))
}

// Common span names
const (
	SpanChatAnswer   = "itguru.chat.answer"
	SpanSourceSearch = "itguru.source.search"
	SpanLLMGenerate  = "itguru.llm.generate"
)

// Common attribute keys
const (
	AttrSessionID    = "itguru.session_id"
	AttrRoute        = "itguru.route"
	AttrMethod       = "itguru.intent.method"
	AttrModel        = "itguru.llm.model"
	AttrTokenCount   = "itguru.llm.token_count"
	AttrInputTokens  = "itguru.llm.input_tokens"
	AttrOutputTokens = "itguru.llm.output_tokens"
	AttrStatus       = "itguru.status"
	AttrError        = "itguru.error"
)

// Helper functions to add common attributes

// RouteAttrs creates routing attributes
func RouteAttrs(route, method string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRoute, route),
		attribute.String(AttrMethod, method),
	}
}

// LLMAttrs creates LLM attributes
func LLMAttrs(model string, inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModel, model),
		attribute.Int(AttrInputTokens, inputTokens),
		attribute.Int(AttrOutputTokens, outputTokens),
		attribute.Int(AttrTokenCount, inputTokens+outputTokens),
	}
}

// StatusAttrs creates status attributes
func StatusAttrs(status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStatus, status),
	}
}

// ErrorAttrs creates error attributes
func ErrorAttrs(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrError, true),
		attribute.String("error.message", err.Error()),
	}
}
