package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages the pipeline metrics.
type MetricsCollector struct {
	meter metric.Meter

	// Chat pipeline metrics
	chatRequests  metric.Int64Counter
	scopeRefusals metric.Int64Counter
	injections    metric.Int64Counter
	streamsActive metric.Int64UpDownCounter

	// Source client metrics
	sourceSearches metric.Int64Counter
	sourceLatency  metric.Float64Histogram
	sourceResults  metric.Int64Histogram

	// LLM metrics
	llmRequests     metric.Int64Counter
	llmTokensInput  metric.Int64Counter
	llmTokensOutput metric.Int64Counter
	llmLatency      metric.Float64Histogram

	// Server for Prometheus scraping
	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// NewMetricsCollector creates a new metrics collector. When disabled, the
// returned collector is a nil-safe no-op.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("itguru")

	chatRequests, err := meter.Int64Counter(
		"itguru.chat.requests.total",
		metric.WithDescription("Total number of answered queries"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat_requests counter: %w", err)
	}

	scopeRefusals, err := meter.Int64Counter(
		"itguru.guard.refusals.total",
		metric.WithDescription("Queries refused by the scope guard"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scope_refusals counter: %w", err)
	}

	injections, err := meter.Int64Counter(
		"itguru.guard.injections.total",
		metric.WithDescription("Queries with prompt-injection heuristics triggered"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create injections counter: %w", err)
	}

	streamsActive, err := meter.Int64UpDownCounter(
		"itguru.streams.active",
		metric.WithDescription("Number of answer streams currently open"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streams_active gauge: %w", err)
	}

	sourceSearches, err := meter.Int64Counter(
		"itguru.source.searches.total",
		metric.WithDescription("Total number of source client searches"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source_searches counter: %w", err)
	}

	sourceLatency, err := meter.Float64Histogram(
		"itguru.source.latency",
		metric.WithDescription("Source search latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source_latency histogram: %w", err)
	}

	sourceResults, err := meter.Int64Histogram(
		"itguru.source.results",
		metric.WithDescription("Results returned per source search"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source_results histogram: %w", err)
	}

	llmRequests, err := meter.Int64Counter(
		"itguru.llm.requests.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests counter: %w", err)
	}

	llmTokensInput, err := meter.Int64Counter(
		"itguru.llm.tokens.input",
		metric.WithDescription("Total input tokens sent to the LLM"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_tokens_input counter: %w", err)
	}

	llmTokensOutput, err := meter.Int64Counter(
		"itguru.llm.tokens.output",
		metric.WithDescription("Total output tokens from the LLM"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_tokens_output counter: %w", err)
	}

	llmLatency, err := meter.Float64Histogram(
		"itguru.llm.latency",
		metric.WithDescription("LLM request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_latency histogram: %w", err)
	}

	collector := &MetricsCollector{
		meter:           meter,
		chatRequests:    chatRequests,
		scopeRefusals:   scopeRefusals,
		injections:      injections,
		streamsActive:   streamsActive,
		sourceSearches:  sourceSearches,
		sourceLatency:   sourceLatency,
		sourceResults:   sourceResults,
		llmRequests:     llmRequests,
		llmTokensInput:  llmTokensInput,
		llmTokensOutput: llmTokensOutput,
		llmLatency:      llmLatency,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// StartPrometheusServer starts the Prometheus metrics server.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.prometheusServer == nil {
		return nil
	}
	return m.prometheusServer.Shutdown(ctx)
}

// RecordChatRequest records one answered query.
func (m *MetricsCollector) RecordChatRequest(ctx context.Context, route string, method string) {
	if m == nil || m.chatRequests == nil {
		return
	}
	m.chatRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
	))
}

// RecordScopeRefusal records an out-of-scope refusal.
func (m *MetricsCollector) RecordScopeRefusal(ctx context.Context) {
	if m == nil || m.scopeRefusals == nil {
		return
	}
	m.scopeRefusals.Add(ctx, 1)
}

// RecordInjectionDetected records a triggered injection heuristic.
func (m *MetricsCollector) RecordInjectionDetected(ctx context.Context, patternID string) {
	if m == nil || m.injections == nil {
		return
	}
	m.injections.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", patternID)))
}

// RecordSourceSearch records one source client search.
func (m *MetricsCollector) RecordSourceSearch(ctx context.Context, source string, status string, latency time.Duration, results int) {
	if m == nil || m.sourceSearches == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("status", status),
	}
	m.sourceSearches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sourceLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attrs...))
	m.sourceResults.Record(ctx, int64(results), metric.WithAttributes(
		attribute.String("source", source)))
}

// RecordLLMRequest records an LLM request.
func (m *MetricsCollector) RecordLLMRequest(ctx context.Context, model string, status string, latency time.Duration, inputTokens, outputTokens int) {
	if m == nil || m.llmRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("status", status),
	}

	m.llmRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmTokensInput.Add(ctx, int64(inputTokens), metric.WithAttributes(attribute.String("model", model)))
	m.llmTokensOutput.Add(ctx, int64(outputTokens), metric.WithAttributes(attribute.String("model", model)))
	m.llmLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveStreams increments the active streams counter.
func (m *MetricsCollector) IncrementActiveStreams(ctx context.Context) {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Add(ctx, 1)
}

// DecrementActiveStreams decrements the active streams counter.
func (m *MetricsCollector) DecrementActiveStreams(ctx context.Context) {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Add(ctx, -1)
}
