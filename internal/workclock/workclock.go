// Package workclock drives the check-in/check-out clock of the logged-in user.
//
// The backend is the source of truth. A WorkClock keeps the last state it
// observed and only changes it after the backend accepted a start or stop.
package workclock

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Status labels shown to the user.
const (
	StatusRunning = "EN MARCHA"
	StatusStopped = "DETENIDO"
)

// TimeLayout is the wire and display format of a check-in time.
const TimeLayout = "15:04:05"

// Backend is the subset of the API client the clock talks to.
type Backend interface {
	LastCheckIn(ctx context.Context) (string, error)
	StartClock(ctx context.Context) error
	StopClock(ctx context.Context) error
}

// State is a snapshot of the clock. LastCheckIn is "HH:mm:ss" while running.
type State struct {
	Running     bool   `json:"running" yaml:"running"`
	LastCheckIn string `json:"last_check_in,omitempty" yaml:"last_check_in,omitempty"`
}

// Status returns EN MARCHA or DETENIDO.
func (s State) Status() string {
	if s.Running {
		return StatusRunning
	}
	return StatusStopped
}

// Option configures a WorkClock.
type Option func(*WorkClock)

// WithNow overrides the time source used to stamp a local start.
func WithNow(now func() time.Time) Option {
	return func(w *WorkClock) { w.now = now }
}

// WorkClock is the DETENIDO / EN MARCHA state machine.
type WorkClock struct {
	backend Backend
	now     func() time.Time

	// op serializes Refresh, Start and Stop so a toggle never races a refresh.
	op sync.Mutex

	mu    sync.RWMutex
	state State
}

// New returns a stopped clock. Call Refresh to load the backend state.
func New(backend Backend, opts ...Option) *WorkClock {
	w := &WorkClock{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the last observed state.
func (w *WorkClock) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *WorkClock) set(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Refresh asks the backend for the open check-in.
//
// A rejected lookup means there is no open check-in. Any other failure
// leaves the state unchanged and is returned.
func (w *WorkClock) Refresh(ctx context.Context) (State, error) {
	w.op.Lock()
	defer w.op.Unlock()

	last, err := w.backend.LastCheckIn(ctx)
	switch {
	case err == nil:
		w.set(State{Running: last != "", LastCheckIn: last})
	case errors.HasCode(err, errors.ErrCodeRejected):
		w.set(State{})
	default:
		return w.State(), err
	}
	return w.State(), nil
}

// Start opens a check-in stamped with the local time.
func (w *WorkClock) Start(ctx context.Context) (State, error) {
	w.op.Lock()
	defer w.op.Unlock()

	if w.State().Running {
		return w.State(), errors.New(errors.ErrCodeInvalidState, "clock is already running").
			WithSuggestion("Run 'attention clock stop' to check out")
	}
	if err := w.backend.StartClock(ctx); err != nil {
		return w.State(), err
	}
	w.set(State{Running: true, LastCheckIn: w.now().Format(TimeLayout)})
	return w.State(), nil
}

// Stop closes the open check-in.
func (w *WorkClock) Stop(ctx context.Context) (State, error) {
	w.op.Lock()
	defer w.op.Unlock()

	if !w.State().Running {
		return w.State(), errors.New(errors.ErrCodeInvalidState, "clock is not running").
			WithSuggestion("Run 'attention clock start' to check in")
	}
	if err := w.backend.StopClock(ctx); err != nil {
		return w.State(), err
	}
	w.set(State{})
	return w.State(), nil
}

// Toggle stops a running clock and starts a stopped one.
func (w *WorkClock) Toggle(ctx context.Context) (State, error) {
	if w.State().Running {
		return w.Stop(ctx)
	}
	return w.Start(ctx)
}

// Elapsed returns the running time at now, or 00:00:00 when stopped.
func (w *WorkClock) Elapsed(now time.Time) string {
	s := w.State()
	if !s.Running {
		return zeroElapsed
	}
	return Elapsed(now, s.LastCheckIn)
}
