package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	// globalMeterProvider holds the current meter provider
	globalMeterProvider metric.MeterProvider
	// meterMu protects access to global meter provider state
	meterMu sync.RWMutex
	// metrics holds all registered instruments
	metrics *Metrics
)

// Metrics holds all registered OpenTelemetry instruments
type Metrics struct {
	CommandCounter      metric.Int64Counter
	CommandDuration     metric.Float64Histogram
	CommandErrorCounter metric.Int64Counter

	RequestCounter metric.Int64Counter
	RequestLatency metric.Float64Histogram
}

func newMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.Protocol {
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case ProtocolHTTP, "":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", cfg.Protocol)
	}
}

// InitMetricsProvider initializes the OpenTelemetry metrics provider
// Returns a shutdown function and any initialization error
func InitMetricsProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	meterMu.Lock()
	defer meterMu.Unlock()

	globalMeterProvider = otel.GetMeterProvider()
	shutdown := func(context.Context) error { return nil }

	if cfg.Enabled && cfg.Endpoint != "" {
		res, err := createResource(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource for metrics: %w", err)
		}

		exporter, err := newMetricExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}

		// Only the final flush on shutdown matters for a short CLI run.
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(30*time.Second))),
		)
		globalMeterProvider = mp
		otel.SetMeterProvider(mp)
		shutdown = mp.Shutdown
	}

	m, err := newMetrics(globalMeterProvider.Meter("github.com/felixgeelhaar/attention"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics = m

	return shutdown, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.CommandCounter, err = meter.Int64Counter(
		"attention.command.invocations",
		metric.WithDescription("Total number of command invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, err
	}
	if m.CommandDuration, err = meter.Float64Histogram(
		"attention.command.duration",
		metric.WithDescription("Command execution duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.CommandErrorCounter, err = meter.Int64Counter(
		"attention.command.errors",
		metric.WithDescription("Total number of command errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.RequestCounter, err = meter.Int64Counter(
		"attention.api.requests",
		metric.WithDescription("Backend requests by operation and outcome"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.RequestLatency, err = meter.Float64Histogram(
		"attention.api.latency",
		metric.WithDescription("Backend request latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// GetMetrics returns the initialized instruments, or an empty set whose
// recorders do nothing.
func GetMetrics() *Metrics {
	meterMu.RLock()
	defer meterMu.RUnlock()

	if metrics != nil {
		return metrics
	}
	return &Metrics{}
}

// RecordCommand records a finished command invocation.
func RecordCommand(ctx context.Context, commandName string, duration time.Duration, errorCode string) {
	m := GetMetrics()
	if m.CommandCounter == nil {
		return
	}

	status := "ok"
	if errorCode != "" {
		status = "error"
		m.CommandErrorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", commandName),
			attribute.String("error_code", errorCode),
		))
	}
	m.CommandCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
		attribute.String("status", status),
	))
	m.CommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("command", commandName),
	))
}

// RequestRecorder forwards backend request observations to the OTel
// instruments. It satisfies api.Recorder.
type RequestRecorder struct{}

func (RequestRecorder) ObserveRequest(operation, outcome string, duration time.Duration) {
	m := GetMetrics()
	if m.RequestCounter == nil {
		return
	}
	ctx := context.Background()
	m.RequestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.RequestLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// ForceFlushMetrics forces all pending metrics to be exported
func ForceFlushMetrics(ctx context.Context) error {
	meterMu.RLock()
	provider := globalMeterProvider
	meterMu.RUnlock()

	if mp, ok := provider.(*sdkmetric.MeterProvider); ok {
		return mp.ForceFlush(ctx)
	}
	return nil
}
