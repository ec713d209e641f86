package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Metrics holds all Prometheus metrics for the attention CLI
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CommandErrors     *prometheus.CounterVec

	// Backend request metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Session lifecycle (login, logout, restore)
	SessionEvents *prometheus.CounterVec

	// Work clock transitions by resulting status
	ClockTransitions *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "attention_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		CommandErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_command_errors_total",
				Help: "Total number of command errors",
			},
			[]string{"command", "error_code"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_api_requests_total",
				Help: "Total number of backend requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "attention_api_request_duration_seconds",
				Help:    "Backend request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"operation"},
		),

		SessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_session_events_total",
				Help: "Total number of session lifecycle events",
			},
			[]string{"event"},
		),

		ClockTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_clock_transitions_total",
				Help: "Total number of accepted work clock transitions",
			},
			[]string{"status"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// ObserveRequest records one backend request. It satisfies api.Recorder.
func (m *Metrics) ObserveRequest(operation, outcome string, duration time.Duration) {
	m.APIRequests.WithLabelValues(operation, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCommand records a finished command and, on failure, its error code.
func (m *Metrics) ObserveCommand(command string, duration time.Duration, err error) {
	success := "true"
	if err != nil {
		success = "false"
		code := errorCode(err)
		m.CommandErrors.WithLabelValues(command, code).Inc()
		m.Errors.WithLabelValues(code).Inc()
	}
	m.CommandExecutions.WithLabelValues(command, success).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordSessionEvent counts a login, logout or restore.
func (m *Metrics) RecordSessionEvent(event string) {
	m.SessionEvents.WithLabelValues(event).Inc()
}

// RecordClockTransition counts an accepted start or stop by resulting status.
func (m *Metrics) RecordClockTransition(status string) {
	m.ClockTransitions.WithLabelValues(status).Inc()
}

func errorCode(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "unknown"
}
