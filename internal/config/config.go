// Package config loads the attention CLI configuration.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, the YAML file at $ATTENTION_HOME/config.yaml, environment
// variables, and finally command line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/log"
	"github.com/felixgeelhaar/attention/internal/telemetry"
)

// Environment variables read by ApplyEnv.
const (
	EnvHome     = "ATTENTION_HOME"
	EnvAPIURL   = "ATTENTION_API_URL"
	EnvLogLevel = "ATTENTION_LOG_LEVEL"
)

const (
	DefaultBaseURL = "https://attention.cl/api"
	DefaultTimeout = 30 * time.Second
	fileName       = "config.yaml"
	dirName        = ".attention"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Duration is a time.Duration written as "30s" in YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the global attention configuration
type Config struct {
	API       APIConfig       `yaml:"api" json:"api"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

type APIConfig struct {
	BaseURL       string   `yaml:"base_url" json:"base_url"`
	Timeout       Duration `yaml:"timeout" json:"timeout"`
	ContractCheck bool     `yaml:"contract_check" json:"contract_check"`
}

type AuthConfig struct {
	LogoutOnUnauthorized bool `yaml:"logout_on_unauthorized" json:"logout_on_unauthorized"`
}

type SessionConfig struct {
	Backend string `yaml:"backend" json:"backend"` // "file", "sqlite", "memory"
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

type OutputConfig struct {
	Format string `yaml:"format" json:"format"` // "text", "json", "yaml"
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Endpoint   string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Protocol   string  `yaml:"protocol" json:"protocol"`
	Insecure   bool    `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: Duration(DefaultTimeout),
		},
		Session: SessionConfig{Backend: BackendFile},
		Output:  OutputConfig{Format: "text"},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
		Telemetry: TelemetryConfig{
			Protocol:   string(telemetry.ProtocolHTTP),
			SampleRate: 1.0,
		},
	}
}

// Home returns $ATTENTION_HOME, or ~/.attention.
func Home() (string, error) {
	if h := os.Getenv(EnvHome); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath returns the path of the configuration file under Home.
func DefaultPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fileName), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read config: %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "YAML", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("failed to write config: %s", path), err)
	}
	return nil
}

// ApplyEnv overlays environment variables. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err)
	}
	if _, err := log.ParseFormat(c.Logging.Format); err != nil {
		return invalid("logging.format", err)
	}
	switch c.Session.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return invalid("session.backend", fmt.Errorf("unknown backend %q (want file, sqlite or memory)", c.Session.Backend))
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return invalid("output.format", fmt.Errorf("unknown format %q (want text, json or yaml)", c.Output.Format))
	}
	if _, err := telemetry.ParseProtocol(c.Telemetry.Protocol); err != nil {
		return invalid("telemetry.protocol", err)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return invalid("telemetry.sample_rate", fmt.Errorf("must be between 0 and 1"))
	}
	if c.API.Timeout < 0 {
		return invalid("api.timeout", fmt.Errorf("must not be negative"))
	}
	return nil
}

func invalid(key string, cause error) error {
	return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value for %s", key), cause).
		WithSuggestion(fmt.Sprintf("Run 'attention config set %s <value>' to fix it", key))
}

// SessionPath returns where the session is persisted for the configured
// backend. An explicit session.path wins.
func (c *Config) SessionPath(home string) string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	if c.Session.Backend == BackendSQLite {
		return filepath.Join(home, "session.db")
	}
	return filepath.Join(home, "session.json")
}

// TelemetryConfig converts the telemetry section for the provider.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	tc.Enabled = c.Telemetry.Enabled
	tc.Endpoint = c.Telemetry.Endpoint
	tc.Insecure = c.Telemetry.Insecure
	tc.SampleRate = c.Telemetry.SampleRate
	if p, err := telemetry.ParseProtocol(c.Telemetry.Protocol); err == nil {
		tc.Protocol = p
	}
	return tc
}

// Keys lists every key accepted by Get and Set.
func Keys() []string {
	return []string{
		"api.base_url",
		"api.timeout",
		"api.contract_check",
		"auth.logout_on_unauthorized",
		"session.backend",
		"session.path",
		"output.format",
		"logging.level",
		"logging.format",
		"telemetry.enabled",
		"telemetry.endpoint",
		"telemetry.protocol",
		"telemetry.insecure",
		"telemetry.sample_rate",
	}
}

// Get retrieves a value using dot notation
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api.base_url":
		return c.API.BaseURL, nil
	case "api.timeout":
		return time.Duration(c.API.Timeout).String(), nil
	case "api.contract_check":
		return strconv.FormatBool(c.API.ContractCheck), nil
	case "auth.logout_on_unauthorized":
		return strconv.FormatBool(c.Auth.LogoutOnUnauthorized), nil
	case "session.backend":
		return c.Session.Backend, nil
	case "session.path":
		return c.Session.Path, nil
	case "output.format":
		return c.Output.Format, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "telemetry.enabled":
		return strconv.FormatBool(c.Telemetry.Enabled), nil
	case "telemetry.endpoint":
		return c.Telemetry.Endpoint, nil
	case "telemetry.protocol":
		return c.Telemetry.Protocol, nil
	case "telemetry.insecure":
		return strconv.FormatBool(c.Telemetry.Insecure), nil
	case "telemetry.sample_rate":
		return strconv.FormatFloat(c.Telemetry.SampleRate, 'g', -1, 64), nil
	default:
		return "", unknownKey(key)
	}
}

// Set assigns a value using dot notation and validates the result.
// On error the configuration is left unchanged.
func (c *Config) Set(key, value string) error {
	next := *c
	var err error

	switch key {
	case "api.base_url":
		next.API.BaseURL = strings.TrimRight(value, "/")
	case "api.timeout":
		var d time.Duration
		d, err = parseDuration(value)
		next.API.Timeout = Duration(d)
	case "api.contract_check":
		next.API.ContractCheck, err = parseBool(value)
	case "auth.logout_on_unauthorized":
		next.Auth.LogoutOnUnauthorized, err = parseBool(value)
	case "session.backend":
		next.Session.Backend = strings.ToLower(value)
	case "session.path":
		next.Session.Path = value
	case "output.format":
		next.Output.Format = strings.ToLower(value)
	case "logging.level":
		next.Logging.Level = strings.ToLower(value)
	case "logging.format":
		next.Logging.Format = strings.ToLower(value)
	case "telemetry.enabled":
		next.Telemetry.Enabled, err = parseBool(value)
	case "telemetry.endpoint":
		next.Telemetry.Endpoint = value
	case "telemetry.protocol":
		next.Telemetry.Protocol = strings.ToLower(value)
	case "telemetry.insecure":
		next.Telemetry.Insecure, err = parseBool(value)
	case "telemetry.sample_rate":
		next.Telemetry.SampleRate, err = strconv.ParseFloat(value, 64)
	default:
		return unknownKey(key)
	}
	if err != nil {
		return invalid(key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*c = next
	return nil
}

func unknownKey(key string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Known keys: " + strings.Join(Keys(), ", "))
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// parseDuration accepts Go durations and bare seconds ("45").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %q", s)
	}
	return d, nil
}
