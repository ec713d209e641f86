package telemetry

import (
	"fmt"
	"strings"
)

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

// ParseProtocol accepts "http" (also "http/protobuf") and "grpc".
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "http", "http/protobuf":
		return ProtocolHTTP, nil
	case "grpc":
		return ProtocolGRPC, nil
	default:
		return "", fmt.Errorf("unknown OTLP protocol %q (want http or grpc)", s)
	}
}

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, production)
	Environment string

	// Enabled determines whether tracing is enabled
	// When false, a noop tracer is used
	Enabled bool

	// Endpoint is the OTLP collector endpoint (host:port).
	// If empty, traces are not exported
	Endpoint string

	// Protocol is the OTLP transport; http by default.
	Protocol Protocol

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	// 1.0 means all traces are sampled
	SampleRate float64
}

// DefaultConfig returns a sensible default configuration
// Tracing disabled by default for CLI tool
func DefaultConfig() Config {
	return Config{
		ServiceName:    "attention",
		ServiceVersion: "dev",
		Environment:    "development",
		Enabled:        false,
		Protocol:       ProtocolHTTP,
		SampleRate:     1.0,
	}
}

// DevelopmentConfig returns a configuration suitable for development
// Tracing enabled but not exported
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	return cfg
}

// ProductionConfig returns a configuration suitable for production
// Tracing enabled with sampling
func ProductionConfig(endpoint string) Config {
	return Config{
		ServiceName:    "attention",
		ServiceVersion: "unknown",
		Environment:    "production",
		Enabled:        true,
		Endpoint:       endpoint,
		Protocol:       ProtocolHTTP,
		SampleRate:     0.1, // Sample 10% of traces in production
	}
}
