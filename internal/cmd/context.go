package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/config"
)

// CommandContext holds the global command-line flags. Empty strings mean
// the flag was not given and the configured value applies.
type CommandContext struct {
	ConfigPath  string
	APIURL      string
	Format      string
	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// NewCommandContext extracts command context from cobra.Command flags.
// Commands should call this in their RunE function to get their configuration:
//
//	func runCommand(cmd *cobra.Command, args []string) error {
//		ctx, err := NewCommandContext(cmd)
//		if err != nil {
//			return fmt.Errorf("failed to create command context: %w", err)
//		}
//		// Use ctx.Format, ctx.APIURL, etc.
//	}
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	apiURL, err := cmd.Flags().GetString("api-url")
	if err != nil {
		return nil, err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}

	metricsFile, err := cmd.Flags().GetString("metrics-file")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigPath:  configPath,
		APIURL:      apiURL,
		Format:      format,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		MetricsFile: metricsFile,
	}, nil
}

// configPath resolves the config file location.
func (c *CommandContext) configPath() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file, then applies the environment and the
// flags on top of it.
func (c *CommandContext) loadConfig(lookup func(string) (string, bool)) (*config.Config, string, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	cfg.ApplyEnv(lookup)

	overrides := []struct{ key, value string }{
		{"api.base_url", c.APIURL},
		{"output.format", c.Format},
		{"logging.level", c.LogLevel},
		{"logging.format", c.LogFormat},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if err := cfg.Set(o.key, o.value); err != nil {
			return nil, "", err
		}
	}
	return cfg, path, nil
}
