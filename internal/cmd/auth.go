package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/session"
	"github.com/felixgeelhaar/attention/internal/tui"
	"github.com/felixgeelhaar/attention/internal/ux"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Attention",
	Long: `Exchange your email and password for a session token.

Missing credentials are asked for interactively. The session is stored
encrypted under $ATTENTION_HOME and reused by every other command.

Examples:
  attention login
  attention login --email ana@attention.cl`,
	Args: cobra.NoArgs,
	RunE: withApp(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWhoami),
}

var (
	loginEmail    string
	loginPassword string
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// profile is the printable view of a session. The token is never shown.
type profile struct {
	UserID    session.ID `json:"user_id" yaml:"user_id"`
	Name      string     `json:"name" yaml:"name"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Avatar    string     `json:"avatar" yaml:"avatar"`
	Token     string     `json:"token_fingerprint" yaml:"token_fingerprint"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

func newProfile(s session.Session) profile {
	return profile{
		UserID:    s.UserID,
		Name:      s.DisplayName,
		Email:     s.Email,
		Avatar:    s.Avatar(),
		Token:     session.Fingerprint(s.Token),
		CreatedAt: s.CreatedAt,
	}
}

func (p profile) String() string {
	return fmt.Sprintf("%s (id %s)\nEmail:   %s\nAvatar:  %s\nSince:   %s",
		p.Name, p.UserID, p.Email, p.Avatar, p.CreatedAt.Local().Format(time.DateTime))
}

func runLogin(ctx context.Context, app *App, _ []string) error {
	email, password := loginEmail, loginPassword

	if email == "" || password == "" {
		prompter := app.Prompter()
		var err error
		if email == "" {
			email, err = prompter.String(tui.Prompt{
				Message:     "Email",
				Placeholder: "you@example.com",
				Required:    true,
			})
			if err != nil {
				return ux.FormatError(err, "reading email")
			}
		}
		if password == "" {
			password, err = prompter.Password("Password")
			if err != nil {
				return ux.FormatError(err, "reading password")
			}
		}
	}

	sess, err := app.Auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	app.Metrics.RecordSessionEvent(eventLogin)

	return app.Print(ux.Result{
		Data: newProfile(sess),
		Text: fmt.Sprintf("Logged in as %s.", sess.DisplayName),
	})
}

func runLogout(ctx context.Context, app *App, _ []string) error {
	_, had := app.Store.Get()
	if err := app.Auth.Logout(ctx); err != nil {
		return err
	}
	if had {
		app.Metrics.RecordSessionEvent(eventLogout)
	}

	msg := "Logged out."
	if !had {
		msg = "Not logged in."
	}
	return app.Print(ux.Result{
		Data: map[string]bool{"logged_out": had},
		Text: msg,
	})
}

func runWhoami(_ context.Context, app *App, _ []string) error {
	sess, ok := app.Store.Get()
	if !ok {
		return errors.NewSessionMissingError("show the current user")
	}
	return app.Print(ux.Result{Data: newProfile(sess), Text: newProfile(sess)})
}
