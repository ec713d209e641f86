package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attention",
	Short: "Command line client for the Attention assistant",
	Long: `attention is a command line client for the Attention backend.
It keeps your session between runs and lets you read the dashboard, manage
calendar events, answer emails, chat with contacts and drive the work clock.

Log in once with 'attention login'; every other command reuses the stored
session until you run 'attention logout'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands pass on to
// every backend request.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is $ATTENTION_HOME/config.yaml, ~/.attention/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().String("format", "", "output format: text, json or yaml (overrides output.format)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics for this run to a textfile")
}
