package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List the people you can message",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	Args:  cobra.NoArgs,
	RunE:  withApp(runContactsList),
}

func init() {
	contactsCmd.AddCommand(contactsListCmd)
	rootCmd.AddCommand(contactsCmd)
}

func contactTable(contacts []api.Contact) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "NAME", "EMAIL"},
		Empty:   "No contacts.",
	}
	for _, c := range contacts {
		t.Rows = append(t.Rows, []string{c.ID.String(), c.Name, c.Email})
	}
	return t
}

func runContactsList(ctx context.Context, app *App, _ []string) error {
	contacts, err := app.Client.ListContacts(ctx)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{Data: contacts, Text: contactTable(contacts)})
}
