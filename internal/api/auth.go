package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/log"
	"github.com/felixgeelhaar/attention/internal/session"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// User is the account returned by login.
type User struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Email  string `json:"email"`
}

// Authenticator creates and destroys the session. It holds the store's only
// writer, so nothing else in the process can log a user in or out.
type Authenticator struct {
	client    *Client
	writer    *session.Writer
	persister session.Persister
	logger    *log.Logger
	now       func() time.Time

	logoutOnUnauthorized bool
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithLogoutOnUnauthorized makes HandleUnauthorized clear the session when
// the backend rejects the token.
func WithLogoutOnUnauthorized(enabled bool) AuthOption {
	return func(a *Authenticator) { a.logoutOnUnauthorized = enabled }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) { a.now = now }
}

func WithAuthLogger(l *log.Logger) AuthOption {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator takes ownership of writer. A nil persister keeps the
// session in memory only.
func NewAuthenticator(client *Client, writer *session.Writer, persister session.Persister, opts ...AuthOption) *Authenticator {
	if persister == nil {
		persister = session.NewMemoryPersister()
	}
	a := &Authenticator{
		client:    client,
		writer:    writer,
		persister: persister,
		logger:    log.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login exchanges credentials for a session. The session is persisted
// before it becomes visible in the store; if persisting fails the store is
// left untouched.
func (a *Authenticator) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, errors.NewInvalidInputError("email and password are required")
	}

	var resp LoginResponse
	err := a.client.do(ctx, request{
		op:          "log in",
		method:      http.MethodPost,
		path:        "/login",
		body:        LoginRequest{Email: email, Password: password},
		credentials: true,
	}, &resp)
	if err != nil {
		return session.Session{}, err
	}

	if resp.Token == "" {
		a.logger.Warn("login response carried no token", "email", email)
		return session.Session{}, errors.NewInvalidCredentialsError()
	}

	sess := session.Session{
		UserID:      resp.User.ID,
		DisplayName: resp.User.Name,
		AvatarURL:   resp.User.Avatar,
		Email:       resp.User.Email,
		Token:       resp.Token,
		CreatedAt:   a.now(),
	}
	if sess.Email == "" {
		sess.Email = email
	}

	if err := a.persister.Save(ctx, sess); err != nil {
		return session.Session{}, err
	}
	a.writer.Set(&sess)

	a.logger.Info("logged in", "user_id", sess.UserID.String(), "token_fp", session.Fingerprint(sess.Token))
	return sess, nil
}

// Logout clears the session and its persisted copy. Logging out while
// logged out is not an error.
func (a *Authenticator) Logout(ctx context.Context) error {
	prev, had := a.writer.Store().Get()
	a.writer.Clear()

	if err := a.persister.Delete(ctx); err != nil {
		return err
	}
	if had {
		a.logger.Info("logged out", "user_id", prev.UserID.String())
	}
	return nil
}

// Restore loads a previously persisted session into the store.
func (a *Authenticator) Restore(ctx context.Context) (bool, error) {
	sess, ok, err := a.persister.Load(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	a.writer.Set(&sess)
	a.logger.Debug("session restored", "user_id", sess.UserID.String(), "token_fp", session.Fingerprint(sess.Token))
	return true, nil
}

// HandleUnauthorized logs out when err is an unauthorized response and the
// authenticator was configured to react to it. It reports whether it did.
func (a *Authenticator) HandleUnauthorized(ctx context.Context, err error) bool {
	if !a.logoutOnUnauthorized || !errors.HasCode(err, errors.ErrCodeUnauthorized) {
		return false
	}
	if logoutErr := a.Logout(ctx); logoutErr != nil {
		a.logger.WithError(logoutErr).Warn("failed to clear rejected session")
	}
	return true
}
