package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show who answered your emails",
	Long: `Show the email response figures from the home screen: how many emails
arrived and how many were answered by Gemini or by you.`,
	Args: cobra.NoArgs,
	RunE: withApp(runDashboard),
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(ctx context.Context, app *App, _ []string) error {
	m, err := app.Client.Dashboard(ctx)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{Data: m, Text: dashboardText(m)})
}

func dashboardText(m *api.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Emails received:      %d\n", m.TotalEmails)
	fmt.Fprintf(&b, "Answered by Gemini:   %d (%.1f%%)\n", m.EmailsRespondedByGemini, m.PercentageRespondedByGemini)
	fmt.Fprintf(&b, "Answered by you:      %d (%.1f%%)", m.EmailsRespondedByHuman, m.PercentageRespondedByHuman)
	return b.String()
}
