package workclock

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/session"
)

// ErrSessionEnded stops a Watcher once nobody is logged in.
var ErrSessionEnded = errors.New(errors.ErrCodeSessionMissing, "session ended").
	WithSuggestion("Run 'attention login' to authenticate")

// Clock is the time source of a Watcher. Tests substitute a manual one.
type Clock interface {
	Now() time.Time
	// NewTicker returns a channel of ticks and a function that stops them.
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

// Tick is one update published by a Watcher.
type Tick struct {
	At      time.Time
	State   State
	Elapsed string
}

// Watcher republishes the elapsed time of a WorkClock once per interval
// until the session ends or its context is cancelled.
type Watcher struct {
	clock    *WorkClock
	store    *session.Store
	time     Clock
	interval time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithClock replaces the wall clock.
func WithClock(c Clock) WatcherOption {
	return func(w *Watcher) { w.time = c }
}

// WithInterval changes the tick period. The default is one second.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher builds a watcher over clock, bound to the session held by store.
func NewWatcher(clock *WorkClock, store *session.Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		clock:    clock,
		store:    store,
		time:     Real(),
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot computes the tick for the current instant.
func (w *Watcher) Snapshot() Tick {
	now := w.time.Now()
	return Tick{At: now, State: w.clock.State(), Elapsed: w.clock.Elapsed(now)}
}

// Run publishes a snapshot immediately and then on every tick. It returns
// ErrSessionEnded when the user logs out, and nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, publish func(Tick)) error {
	if _, ok := w.store.Get(); !ok {
		return ErrSessionEnded
	}

	ended := make(chan struct{})
	var once sync.Once
	cancel := w.store.Subscribe(func(_ session.Session, ok bool) {
		if !ok {
			once.Do(func() { close(ended) })
		}
	})
	defer cancel()

	ticks, stop := w.time.NewTicker(w.interval)
	defer stop()

	publish(w.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			return ErrSessionEnded
		case <-ticks:
			publish(w.Snapshot())
		}
	}
}
