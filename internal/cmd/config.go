package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/attention/internal/config"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit attention configuration",
	Long: `Manage attention configuration stored at ~/.attention/config.yaml
($ATTENTION_HOME/config.yaml when set).

Configuration includes:
  • Backend URL, request timeout and contract checking
  • Session storage backend
  • Default output format
  • Logging and telemetry settings

Examples:
  # View current configuration
  attention config view

  # Edit configuration in $EDITOR
  attention config edit

  # Get a specific value
  attention config get api.base_url

  # Set a specific value
  attention config set session.backend sqlite

  # Show configuration file path
  attention config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display current configuration",
	Long: `Display the effective configuration: the file merged with environment
variables and flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigView,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	Long:  `Open the configuration file in your default editor (from $EDITOR environment variable).`,
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get a configuration value",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.Keys(),
	RunE:      runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE:      runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

// configText renders the configuration as YAML under a path header.
type configText struct {
	path string
	cfg  *config.Config
}

func (c configText) String() string {
	data, err := yaml.Marshal(c.cfg)
	if err != nil {
		return fmt.Sprintf("Configuration file: %s\n\n(unprintable: %v)", c.path, err)
	}
	return fmt.Sprintf("Configuration file: %s\n\n%s", c.path, data)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}

	cfg, path, err := cmdCtx.loadConfig(lookupEnv)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	formatter, err := ux.NewFormatter(cfg.Output.Format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	return formatter.Format(ux.Result{Data: cfg, Text: configText{path: path, cfg: cfg}})
}

// loadFileConfig reads the file alone so that set and edit never persist
// values that came from the environment or flags.
func loadFileConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := cmdCtx.configPath()
	if err != nil {
		return nil, "", ux.FormatError(err, "getting config path")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", ux.FormatError(err, "loading configuration")
	}
	return cfg, path, nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	// Ensure config exists
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := config.Save(cfg, path); err != nil {
			return ux.FormatError(err, "saving configuration")
		}
	}

	// Get editor from environment
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi" // Fallback to vi
	}

	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	// Validate the edited config
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Please check and fix the configuration file.\n")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cfg, path, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := config.Save(cfg, path); err != nil {
		return ux.FormatError(err, "saving configuration")
	}

	stored, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, stored)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := cmdCtx.configPath()
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
