package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorDisabledIsNilSafe(t *testing.T) {
	ctx := context.Background()

	collector, err := NewMetricsCollector(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	collector.RecordChatRequest(ctx, "exa_search", "llm_classification")
	collector.RecordSourceSearch(ctx, "exa_search", "ok", time.Second, 4)
	collector.IncrementActiveStreams(ctx)
	collector.DecrementActiveStreams(ctx)

	var nilCollector *MetricsCollector
	nilCollector.RecordSourceSearch(ctx, "exa_search", "ok", time.Second, 4)
	require.NoError(t, nilCollector.Shutdown(ctx))
}

func TestMetricsCollectorRegistersSourceInstruments(t *testing.T) {
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, collector.sourceSearches)
	require.NotNil(t, collector.sourceLatency)
	require.NotNil(t, collector.sourceResults)

	collector.RecordSourceSearch(context.Background(), "microsoft_learn", "ok", 120*time.Millisecond, 3)
}
