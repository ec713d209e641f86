package telemetry

import "testing"

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ServiceName != "attention" {
		t.Errorf("ServiceName = %q, want %q", config.ServiceName, "attention")
	}
	if config.Enabled {
		t.Error("Enabled should be false by default")
	}
	if config.Endpoint != "" {
		t.Error("Endpoint should be empty by default")
	}
	if config.Protocol != ProtocolHTTP {
		t.Errorf("Protocol = %q, want %q", config.Protocol, ProtocolHTTP)
	}
	if config.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", config.SampleRate)
	}
}

func TestDevelopmentConfig(t *testing.T) {
	config := DevelopmentConfig()

	if !config.Enabled {
		t.Error("Enabled should be true for development")
	}
	if config.Endpoint != "" {
		t.Error("Endpoint should be empty for development (no export)")
	}
}

func TestProductionConfig(t *testing.T) {
	endpoint := "localhost:4318"
	config := ProductionConfig(endpoint)

	if config.Environment != "production" {
		t.Errorf("Environment = %q, want %q", config.Environment, "production")
	}
	if !config.Enabled {
		t.Error("Enabled should be true for production")
	}
	if config.Endpoint != endpoint {
		t.Errorf("Endpoint = %q, want %q", config.Endpoint, endpoint)
	}
	if config.SampleRate != 0.1 {
		t.Errorf("SampleRate = %v, want 0.1", config.SampleRate)
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input   string
		want    Protocol
		wantErr bool
	}{
		{"", ProtocolHTTP, false},
		{"http", ProtocolHTTP, false},
		{"http/protobuf", ProtocolHTTP, false},
		{"GRPC", ProtocolGRPC, false},
		{"zipkin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProtocol(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
