package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProviderDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, config)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}

func TestInitProviderEnabled(t *testing.T) {
	for _, protocol := range []Protocol{ProtocolHTTP, ProtocolGRPC} {
		t.Run(string(protocol), func(t *testing.T) {
			config := DefaultConfig()
			config.Enabled = true
			config.Endpoint = "localhost:4318"
			config.Protocol = protocol
			config.Insecure = true
			config.SampleRate = 0.5

			ctx := context.Background()
			shutdown, err := InitProvider(ctx, config)
			require.NoError(t, err)
			require.NotNil(t, shutdown)

			_, ok := GetTracerProvider().(*sdktrace.TracerProvider)
			assert.True(t, ok, "expected an SDK tracer provider")

			// Nothing listens on the endpoint; shutting down must still return.
			shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
			_ = shutdown(shutdownCtx)
		})
	}
}

func TestInitProviderUnknownProtocol(t *testing.T) {
	config := DevelopmentConfig()
	config.Endpoint = "localhost:4318"
	config.Protocol = "zipkin"

	_, err := InitProvider(context.Background(), config)
	assert.Error(t, err)
}

func TestShutdownForceFlush(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Shutdown(ctx))
	assert.NoError(t, ForceFlush(ctx))
}

type flakyExporter struct {
	*tracetest.InMemoryExporter
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("collector unavailable")
	}
	return f.InMemoryExporter.ExportSpans(ctx, spans)
}

func TestRetryableExporterRetries(t *testing.T) {
	inner := &flakyExporter{InMemoryExporter: tracetest.NewInMemoryExporter()}
	inner.failures.Store(2)

	re := newRetryableExporter(inner)
	re.initial = time.Millisecond

	require.NoError(t, re.ExportSpans(context.Background(), nil))
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryableExporterOpensBreaker(t *testing.T) {
	inner := &flakyExporter{InMemoryExporter: tracetest.NewInMemoryExporter()}
	inner.failures.Store(1000)

	re := newRetryableExporter(inner)
	re.initial = time.Millisecond
	now := time.Now()
	re.breaker.now = func() time.Time { return now }

	for i := 0; i < re.breaker.threshold; i++ {
		assert.Error(t, re.ExportSpans(context.Background(), nil))
	}
	calls := inner.calls.Load()

	assert.Error(t, re.ExportSpans(context.Background(), nil))
	assert.Equal(t, calls, inner.calls.Load(), "open breaker must not call the exporter")

	now = now.Add(time.Minute)
	inner.failures.Store(0)
	assert.NoError(t, re.ExportSpans(context.Background(), nil))
}
