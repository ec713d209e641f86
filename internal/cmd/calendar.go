package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Aliases: []string{"events"},
	Short:   "Manage calendar events",
	Long: `List, create and delete calendar events.

Examples:
  attention calendar list
  attention calendar create --title "Standup" --start 2024-05-06T09:00:00Z --end 2024-05-06T09:15:00Z
  attention calendar delete 42`,
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendar events",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCalendarList),
}

var calendarCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a calendar event",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCalendarCreate),
}

var calendarDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a calendar event",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runCalendarDelete),
}

var (
	eventTitle       string
	eventDescription string
	eventStart       string
	eventEnd         string
	deleteYes        bool
)

func init() {
	calendarCreateCmd.Flags().StringVar(&eventTitle, "title", "", "event title (required)")
	calendarCreateCmd.Flags().StringVar(&eventDescription, "description", "", "event description")
	calendarCreateCmd.Flags().StringVar(&eventStart, "start", "", "start time, RFC 3339 (required)")
	calendarCreateCmd.Flags().StringVar(&eventEnd, "end", "", "end time, RFC 3339 (required)")

	calendarDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")

	calendarCmd.AddCommand(calendarListCmd)
	calendarCmd.AddCommand(calendarCreateCmd)
	calendarCmd.AddCommand(calendarDeleteCmd)
	rootCmd.AddCommand(calendarCmd)
}

func eventTable(events []api.Event) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "TITLE", "START", "END", "DESCRIPTION"},
		Empty:   "No events.",
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{e.ID.String(), e.Title, e.Start, e.End, e.Description})
	}
	return t
}

func runCalendarList(ctx context.Context, app *App, _ []string) error {
	events, err := app.Client.ListEvents(ctx)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{Data: events, Text: eventTable(events)})
}

func runCalendarCreate(ctx context.Context, app *App, _ []string) error {
	in := api.EventInput{
		Title:       eventTitle,
		Description: eventDescription,
		Start:       eventStart,
		End:         eventEnd,
	}
	event, err := app.Client.CreateEvent(ctx, in)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: event,
		Text: fmt.Sprintf("Created event %s (%s).", event.ID, event.Title),
	})
}

func runCalendarDelete(ctx context.Context, app *App, args []string) error {
	id := api.ID(args[0])

	if !deleteYes {
		ok, err := app.Prompter().Confirm(fmt.Sprintf("Delete event %s?", id), false)
		if err != nil {
			return ux.FormatError(err, "reading confirmation")
		}
		if !ok {
			app.Notice("Cancelled.")
			return nil
		}
	}

	if err := app.Client.DeleteEvent(ctx, id); err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: map[string]string{"deleted": id.String()},
		Text: fmt.Sprintf("Deleted event %s.", id),
	})
}
