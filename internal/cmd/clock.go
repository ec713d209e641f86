package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/tui"
	"github.com/felixgeelhaar/attention/internal/ux"
	"github.com/felixgeelhaar/attention/internal/workclock"
)

var clockCmd = &cobra.Command{
	Use:     "clock",
	Aliases: []string{"reloj"},
	Short:   "Check in and out of work",
	Long: `Drive the work clock: check in, check out and see how long you have
been working today.

Examples:
  attention clock status
  attention clock start
  attention clock watch`,
}

var clockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the clock is running",
	Args:  cobra.NoArgs,
	RunE:  withApp(runClockStatus),
}

var clockStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Check in",
	Args:  cobra.NoArgs,
	RunE:  withApp(clockTransition((*workclock.WorkClock).Start)),
}

var clockStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Check out",
	Args:  cobra.NoArgs,
	RunE:  withApp(clockTransition((*workclock.WorkClock).Stop)),
}

var clockToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Check in when stopped, check out when running",
	Args:  cobra.NoArgs,
	RunE:  withApp(clockTransition((*workclock.WorkClock).Toggle)),
}

var clockWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the running clock, updated every second",
	Long: `Show the running clock, updated every second. Press s to check in or
out and q to quit. The view closes when you log out.

When stdout is not a terminal, or with --plain, one line is printed per
second instead.`,
	Args: cobra.NoArgs,
	RunE: withApp(runClockWatch),
}

var watchPlain bool

// nowFunc is swapped in tests.
var nowFunc = time.Now

func init() {
	clockWatchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per second instead of the interactive view")

	clockCmd.AddCommand(clockStatusCmd)
	clockCmd.AddCommand(clockStartCmd)
	clockCmd.AddCommand(clockStopCmd)
	clockCmd.AddCommand(clockToggleCmd)
	clockCmd.AddCommand(clockWatchCmd)
	rootCmd.AddCommand(clockCmd)
}

// clockReport is the printable clock state.
type clockReport struct {
	Status      string `json:"status" yaml:"status"`
	Running     bool   `json:"running" yaml:"running"`
	LastCheckIn string `json:"last_check_in,omitempty" yaml:"last_check_in,omitempty"`
	Elapsed     string `json:"elapsed" yaml:"elapsed"`
}

func newClockReport(state workclock.State, now time.Time) clockReport {
	return clockReport{
		Status:      state.Status(),
		Running:     state.Running,
		LastCheckIn: state.LastCheckIn,
		Elapsed:     elapsedFor(state, now),
	}
}

func elapsedFor(state workclock.State, now time.Time) string {
	if !state.Running {
		return "00:00:00"
	}
	return workclock.Elapsed(now, state.LastCheckIn)
}

func (r clockReport) String() string {
	if !r.Running {
		return fmt.Sprintf("Estado: %s", r.Status)
	}
	return fmt.Sprintf("Estado: %s\nEntrada: %s\nTiempo: %s", r.Status, r.LastCheckIn, r.Elapsed)
}

// loadClock builds a clock over the client and loads the current state.
func loadClock(ctx context.Context, app *App) (*workclock.WorkClock, error) {
	if _, ok := app.Store.Get(); !ok {
		return nil, errors.NewSessionMissingError("load the work clock")
	}
	clock := workclock.New(app.Client, workclock.WithNow(nowFunc))
	if _, err := clock.Refresh(ctx); err != nil {
		return nil, err
	}
	return clock, nil
}

func runClockStatus(ctx context.Context, app *App, _ []string) error {
	clock, err := loadClock(ctx, app)
	if err != nil {
		return err
	}
	report := newClockReport(clock.State(), nowFunc())
	return app.Print(ux.Result{Data: report, Text: report})
}

func clockTransition(transition func(*workclock.WorkClock, context.Context) (workclock.State, error)) appFunc {
	return func(ctx context.Context, app *App, _ []string) error {
		clock, err := loadClock(ctx, app)
		if err != nil {
			return err
		}
		state, err := transition(clock, ctx)
		if err != nil {
			return err
		}
		app.Metrics.RecordClockTransition(state.Status())

		report := newClockReport(state, nowFunc())
		return app.Print(ux.Result{Data: report, Text: report})
	}
}

func runClockWatch(ctx context.Context, app *App, _ []string) error {
	clock, err := loadClock(ctx, app)
	if err != nil {
		return err
	}
	watcher := workclock.NewWatcher(clock, app.Store)

	if watchPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return watcher.Run(ctx, func(t workclock.Tick) {
			fmt.Fprintf(app.out, "%s  %s  %s\n", t.At.Format(workclock.TimeLayout), t.State.Status(), t.Elapsed)
		})
	}
	return tui.RunClock(ctx, clock, watcher)
}
