package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/tui"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Read and answer emails",
	Long: `Read incoming emails, change their status and send replies.

Examples:
  attention emails list --filter to_be_answered
  attention emails status 12 archived
  attention emails reply 12 --suggested`,
}

var emailsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List emails",
	Args:  cobra.NoArgs,
	RunE:  withApp(runEmailsList),
}

var emailsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one email with its suggested reply",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runEmailsShow),
}

var emailsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change an email's status",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runEmailsStatus),
}

var emailsReplyCmd = &cobra.Command{
	Use:   "reply <id>",
	Short: "Reply to an email",
	Long: `Reply to an email from your account. The subject is the original one
prefixed with "RE: ".

Without --body the reply is asked for, starting from the suggested reply.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runEmailsReply),
}

var (
	emailsFilter   string
	replyBody      string
	replySuggested bool
)

func init() {
	emailsListCmd.Flags().StringVar(&emailsFilter, "filter", string(api.FilterAll),
		"which emails to list: all, answered_by_gemini or to_be_answered")

	emailsReplyCmd.Flags().StringVar(&replyBody, "body", "", "reply text")
	emailsReplyCmd.Flags().BoolVar(&replySuggested, "suggested", false, "send the suggested reply unchanged")

	emailsCmd.AddCommand(emailsListCmd)
	emailsCmd.AddCommand(emailsShowCmd)
	emailsCmd.AddCommand(emailsStatusCmd)
	emailsCmd.AddCommand(emailsReplyCmd)
	rootCmd.AddCommand(emailsCmd)
}

func emailTable(emails []api.Email) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "FROM", "SUBJECT", "STATUS"},
		Empty:   "No emails.",
	}
	for _, e := range emails {
		t.Rows = append(t.Rows, []string{e.ID.String(), e.From, e.Subject, e.Status})
	}
	return t
}

func emailText(e *api.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From:    %s\n", e.From)
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	if e.Status != "" {
		fmt.Fprintf(&b, "Status:  %s\n", e.Status)
	}
	fmt.Fprintf(&b, "\n%s", e.Body)
	if e.SuggestedReply != "" {
		fmt.Fprintf(&b, "\n\nSuggested reply:\n%s", e.SuggestedReply)
	}
	return b.String()
}

func runEmailsList(ctx context.Context, app *App, _ []string) error {
	filter, err := api.ParseFilter(emailsFilter)
	if err != nil {
		return err
	}
	emails, err := app.Client.ListEmails(ctx, filter)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{Data: emails, Text: emailTable(emails)})
}

func runEmailsShow(ctx context.Context, app *App, args []string) error {
	email, err := app.Client.GetEmail(ctx, api.ID(args[0]))
	if err != nil {
		return err
	}
	return app.Print(ux.Result{Data: email, Text: emailText(email)})
}

func runEmailsStatus(ctx context.Context, app *App, args []string) error {
	id, status := api.ID(args[0]), args[1]
	if err := app.Client.UpdateEmailStatus(ctx, id, status); err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: map[string]string{"id": id.String(), "status": status},
		Text: fmt.Sprintf("Email %s marked %s.", id, status),
	})
}

func runEmailsReply(ctx context.Context, app *App, args []string) error {
	if replySuggested && replyBody != "" {
		return errors.NewInvalidInputError("--body and --suggested cannot be combined")
	}

	email, err := app.Client.GetEmail(ctx, api.ID(args[0]))
	if err != nil {
		return err
	}

	body := replyBody
	switch {
	case replySuggested:
		if email.SuggestedReply == "" {
			return errors.NewInvalidInputError(fmt.Sprintf("email %s has no suggested reply", email.ID)).
				WithSuggestion("Pass the reply with --body")
		}
		body = email.SuggestedReply
	case body == "":
		body, err = app.Prompter().Text(tui.Prompt{
			Message: "Reply to " + email.From,
			Default: email.SuggestedReply,
		})
		if err != nil {
			return ux.FormatError(err, "reading reply")
		}
	}

	reply, err := app.Client.SendReply(ctx, *email, body)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: reply,
		Text: fmt.Sprintf("Sent %q to %s.", reply.Subject, reply.To),
	})
}
