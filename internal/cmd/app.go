package cmd

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/config"
	"github.com/felixgeelhaar/attention/internal/contract"
	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/log"
	"github.com/felixgeelhaar/attention/internal/metrics"
	"github.com/felixgeelhaar/attention/internal/security"
	"github.com/felixgeelhaar/attention/internal/session"
	"github.com/felixgeelhaar/attention/internal/telemetry"
	"github.com/felixgeelhaar/attention/internal/tui"
	"github.com/felixgeelhaar/attention/internal/ux"
	"github.com/felixgeelhaar/attention/internal/version"
)

// Session events counted by the metrics.
const (
	eventLogin   = "login"
	eventLogout  = "logout"
	eventRestore = "restore"
	eventExpired = "expired"
)

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

// baseTransport is the transport under the instrumentation and contract
// layers. Tests replace it.
var baseTransport http.RoundTripper = http.DefaultTransport

// App is everything a backend command needs, built once per invocation.
type App struct {
	Config      *config.Config
	ConfigPath  string
	MetricsFile string

	Logger    *log.Logger
	Store     *session.Store
	Client    *api.Client
	Auth      *api.Authenticator
	Formatter ux.Formatter

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	closers []func(context.Context) error
}

// newApp loads the configuration, starts telemetry, opens the session
// persister and restores the stored session.
func newApp(cmd *cobra.Command) (*App, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	cfg, path, err := cc.loadConfig(lookupEnv)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		ConfigPath:  path,
		MetricsFile: cc.MetricsFile,
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
	}
	ctx := cmd.Context()

	app.Logger = newLogger(cfg, app.errOut)
	log.SetDefaultLogger(app.Logger)

	app.Formatter, err = ux.NewFormatter(cfg.Output.Format, &ux.FormatterOptions{Writer: app.out})
	if err != nil {
		return nil, err
	}

	if err := app.startTelemetry(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Registry, app.Metrics = metrics.NewRegistry()

	persister, err := app.openPersister(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	transport, err := app.transport(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	store, writer := session.New()
	app.Store = store
	app.Client = api.NewClient(cfg.API.BaseURL, store,
		api.WithTransport(transport),
		api.WithTimeout(time.Duration(cfg.API.Timeout)),
		api.WithLogger(app.Logger),
		api.WithRecorder(recorders{app.Metrics, telemetry.RequestRecorder{}}),
	)
	app.Auth = api.NewAuthenticator(app.Client, writer, persister,
		api.WithLogoutOnUnauthorized(cfg.Auth.LogoutOnUnauthorized),
		api.WithAuthLogger(app.Logger),
	)

	restored, err := app.Auth.Restore(ctx)
	switch {
	case err != nil:
		// An unreadable session only means the user has to log in again.
		app.Logger.WithError(err).Warn("ignoring stored session")
	case restored:
		app.Metrics.RecordSessionEvent(eventRestore)
	}

	return app, nil
}

func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Output = w
	lc.ServiceVersion = version.Version
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		lc.Level = level
	}
	if format, err := log.ParseFormat(cfg.Logging.Format); err == nil {
		lc.Format = format
	}
	if lc.Level == log.LevelDebug {
		lc.AddSource = true
	}
	return log.New(lc)
}

func (a *App) startTelemetry(ctx context.Context) error {
	tc := a.Config.TelemetryConfig(version.GetInfo().Version)

	shutdownTraces, err := telemetry.InitProvider(ctx, tc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "failed to start tracing", err).
			WithSuggestion("Check telemetry.endpoint or run 'attention config set telemetry.enabled false'")
	}
	a.closers = append(a.closers, shutdownTraces)

	shutdownMetrics, err := telemetry.InitMetricsProvider(ctx, tc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "failed to start metrics export", err)
	}
	a.closers = append(a.closers, shutdownMetrics)
	return nil
}

func (a *App) openPersister(ctx context.Context) (session.Persister, error) {
	if a.Config.Session.Backend == config.BackendMemory {
		return session.NewMemoryPersister(), nil
	}

	home, err := config.Home()
	if err != nil {
		return nil, err
	}
	cipher, err := security.NewCipher(security.Passphrase())
	if err != nil {
		return nil, err
	}
	path := a.Config.SessionPath(home)

	if a.Config.Session.Backend == config.BackendSQLite {
		p, err := session.OpenSQLitePersister(ctx, path, cipher)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		return p, nil
	}
	return session.NewFilePersister(path, cipher), nil
}

// transport stacks the optional contract check under the tracing layer,
// so rejected requests still show up as spans.
func (a *App) transport(ctx context.Context) (http.RoundTripper, error) {
	rt := baseTransport
	if a.Config.API.ContractCheck {
		v, err := contract.NewValidator(ctx, a.Config.API.BaseURL)
		if err != nil {
			return nil, err
		}
		rt = &contract.Transport{Base: rt, Validator: v}
	}
	return telemetry.InstrumentTransport(rt), nil
}

// Close flushes telemetry and releases the persister. Errors are logged.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Logger.WithError(err).Debug("shutdown step failed")
		}
	}
	a.closers = nil
}

// newPrompter is swapped in tests.
var newPrompter = func(in io.Reader, out io.Writer) *tui.Prompter {
	if tui.ShouldPrompt() {
		return tui.NewPrompter()
	}
	return tui.NewLinePrompter(in, out)
}

// Prompter asks the user for missing input.
func (a *App) Prompter() *tui.Prompter {
	return newPrompter(a.in, a.errOut)
}

// Print renders a result with the configured formatter.
func (a *App) Print(data interface{}) error {
	return a.Formatter.Format(data)
}

// Notice writes a human message to stderr so stdout stays machine-readable.
func (a *App) Notice(msg string) {
	_, _ = io.WriteString(a.errOut, msg+"\n")
}

// recorders fans request observations out to several sinks.
type recorders []api.Recorder

func (rs recorders) ObserveRequest(operation, outcome string, duration time.Duration) {
	for _, r := range rs {
		r.ObserveRequest(operation, outcome, duration)
	}
}

type appFunc func(ctx context.Context, app *App, args []string) error

// withApp builds the App, runs fn inside a command span and records the
// outcome. An unauthorized response clears the session when configured to.
func withApp(fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		name := cmd.CommandPath()
		ctx, span := telemetry.StartCommandSpan(cmd.Context(), name)
		start := time.Now()

		err = fn(ctx, app, args)
		if err != nil && app.Auth.HandleUnauthorized(ctx, err) {
			app.Metrics.RecordSessionEvent(eventExpired)
			app.Notice("Session expired; log in again with 'attention login'.")
		}

		app.finish(ctx, name, span, time.Since(start), err)
		return err
	}
}

func (a *App) finish(ctx context.Context, name string, span trace.Span, duration time.Duration, err error) {
	telemetry.RecordDuration(span, "command.duration", duration)
	if err != nil {
		telemetry.RecordError(span, err)
		a.Logger.LogErrorContext(ctx, err)
	} else {
		telemetry.RecordSuccess(span, attribute.Bool("session.authenticated", a.isLoggedIn()))
	}
	span.End()

	a.Metrics.ObserveCommand(name, duration, err)
	telemetry.RecordCommand(ctx, name, duration, errorCode(err))

	if a.MetricsFile != "" {
		if werr := metrics.WriteTextfile(a.Registry, a.MetricsFile); werr != nil {
			a.Logger.WithError(werr).Warn("failed to write metrics file", "path", a.MetricsFile)
		}
	}
	a.Close(ctx)
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "unknown"
}

func (a *App) isLoggedIn() bool {
	_, ok := a.Store.Get()
	return ok
}
