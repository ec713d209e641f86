package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var messagesCmd = &cobra.Command{
	Use:     "messages",
	Aliases: []string{"chat"},
	Short:   "Chat with your contacts",
	Long: `Read conversations and send messages.

Examples:
  attention messages fetch 8
  attention messages send 8 "see you at ten"
  attention messages send 8 --image ./receipt.png
  attention messages unread`,
}

var messagesFetchCmd = &cobra.Command{
	Use:   "fetch [contact-id]",
	Short: "Show the conversation with a contact",
	Long: `Show the conversation with a contact. Without an id you pick the
contact from your list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runMessagesFetch),
}

var messagesSendCmd = &cobra.Command{
	Use:   "send <contact-id> [text...]",
	Short: "Send a message to a contact",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runMessagesSend),
}

var messagesUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Count unread messages",
	Args:  cobra.NoArgs,
	RunE:  withApp(runMessagesUnread),
}

var messageImage string

func init() {
	messagesSendCmd.Flags().StringVar(&messageImage, "image", "", "attach an image file")

	messagesCmd.AddCommand(messagesFetchCmd)
	messagesCmd.AddCommand(messagesSendCmd)
	messagesCmd.AddCommand(messagesUnreadCmd)
	rootCmd.AddCommand(messagesCmd)
}

func messageTable(messages []api.Message, self, other api.ID) ux.Table {
	t := ux.Table{
		Headers: []string{"FROM", "WHEN", "MESSAGE"},
		Empty:   "No messages yet.",
	}
	for _, m := range messages {
		from := other.String()
		if m.FromID == self {
			from = "me"
		}
		text := m.Body
		if m.Image != "" {
			text = strings.TrimSpace(text + " [image " + m.Image + "]")
		}
		t.Rows = append(t.Rows, []string{from, m.CreatedAt, text})
	}
	return t
}

// pickContact lets the user choose a contact by name.
func pickContact(ctx context.Context, app *App) (api.ID, error) {
	contacts, err := app.Client.ListContacts(ctx)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return "", errors.NewInvalidInputError("you have no contacts to message")
	}

	options := make([]string, len(contacts))
	byOption := make(map[string]api.ID, len(contacts))
	for i, c := range contacts {
		options[i] = fmt.Sprintf("%s (%s)", c.Name, c.ID)
		byOption[options[i]] = c.ID
	}
	choice, err := app.Prompter().Select("Contact", options)
	if err != nil {
		return "", ux.FormatError(err, "choosing contact")
	}
	return byOption[choice], nil
}

func runMessagesFetch(ctx context.Context, app *App, args []string) error {
	var contactID api.ID
	if len(args) == 1 {
		contactID = api.ID(args[0])
	} else {
		var err error
		if contactID, err = pickContact(ctx, app); err != nil {
			return err
		}
	}

	messages, err := app.Client.FetchMessages(ctx, contactID)
	if err != nil {
		return err
	}
	sess, _ := app.Store.Get()
	return app.Print(ux.Result{Data: messages, Text: messageTable(messages, sess.UserID, contactID)})
}

func runMessagesSend(ctx context.Context, app *App, args []string) error {
	contactID := api.ID(args[0])
	text := strings.Join(args[1:], " ")

	var image *api.Attachment
	if messageImage != "" {
		f, err := os.Open(messageImage)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFileNotFound, "failed to open image "+messageImage, err)
		}
		defer f.Close()

		name := filepath.Base(messageImage)
		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		image = &api.Attachment{Name: name, ContentType: contentType, Data: f}
	}

	msg, err := app.Client.SendMessage(ctx, contactID, text, image)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: msg,
		Text: fmt.Sprintf("Message sent to %s.", contactID),
	})
}

func runMessagesUnread(ctx context.Context, app *App, _ []string) error {
	n, err := app.Client.Unread(ctx)
	if err != nil {
		return err
	}
	return app.Print(ux.Result{
		Data: n,
		Text: fmt.Sprintf("%d unread messages.", n.Count),
	})
}
