package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func useManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	meterMu.Lock()
	prevProvider, prevMetrics := globalMeterProvider, metrics
	globalMeterProvider = provider
	m, err := newMetrics(provider.Meter("test"))
	metrics = m
	meterMu.Unlock()
	require.NoError(t, err)

	t.Cleanup(func() {
		meterMu.Lock()
		globalMeterProvider, metrics = prevProvider, prevMetrics
		meterMu.Unlock()
	})
	return reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecordCommand(t *testing.T) {
	reader := useManualReader(t)
	ctx := context.Background()

	RecordCommand(ctx, "login", time.Second, "")
	RecordCommand(ctx, "contacts list", time.Second, "SESSION-001")

	assert.Equal(t, int64(2), sumOf(t, reader, "attention.command.invocations"))
	assert.Equal(t, int64(1), sumOf(t, reader, "attention.command.errors"))
}

func TestRequestRecorder(t *testing.T) {
	reader := useManualReader(t)

	var rec RequestRecorder
	rec.ObserveRequest("load dashboard", "ok", 50*time.Millisecond)
	rec.ObserveRequest("load dashboard", "network_error", time.Second)

	assert.Equal(t, int64(2), sumOf(t, reader, "attention.api.requests"))
}

func TestRecordersWithoutInit(t *testing.T) {
	meterMu.Lock()
	prev := metrics
	metrics = nil
	meterMu.Unlock()
	defer func() {
		meterMu.Lock()
		metrics = prev
		meterMu.Unlock()
	}()

	assert.NotPanics(t, func() {
		RecordCommand(context.Background(), "login", time.Second, "")
		RequestRecorder{}.ObserveRequest("login", "ok", time.Second)
	})
}

func TestInitMetricsProviderDisabled(t *testing.T) {
	shutdown, err := InitMetricsProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, GetMetrics().CommandCounter)
	assert.NoError(t, ForceFlushMetrics(context.Background()))
}
