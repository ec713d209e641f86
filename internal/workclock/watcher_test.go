package workclock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/attention/internal/session"
)

// manualClock only ticks when the test says so.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	ticks   chan time.Time
	stopped bool
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now, ticks: make(chan time.Time)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()
	}
}

// advance moves time forward and blocks until the watcher took the tick.
func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	c.ticks <- now
}

func (c *manualClock) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func loggedInStore() (*session.Store, *session.Writer) {
	store, writer := session.New()
	writer.Set(&session.Session{UserID: "7", Token: "abc"})
	return store, writer
}

type collector struct {
	mu    sync.Mutex
	ticks []Tick
	seen  chan struct{}
}

func newCollector() *collector {
	return &collector{seen: make(chan struct{}, 16)}
}

func (c *collector) publish(t Tick) {
	c.mu.Lock()
	c.ticks = append(c.ticks, t)
	c.mu.Unlock()
	c.seen <- struct{}{}
}

func (c *collector) elapsed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ticks))
	for i, t := range c.ticks {
		out[i] = t.Elapsed
	}
	return out
}

func TestWatcherPublishesEverySecond(t *testing.T) {
	store, _ := loggedInStore()
	mc := newManualClock(time.Date(2024, 5, 6, 8, 0, 10, 0, time.Local))
	clock := New(&fakeBackend{})
	clock.set(State{Running: true, LastCheckIn: "08:00:00"})
	w := NewWatcher(clock, store, WithClock(mc))

	ctx, cancel := context.WithCancel(context.Background())
	col := newCollector()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, col.publish) }()

	<-col.seen
	mc.advance(time.Second)
	<-col.seen
	mc.advance(time.Second)
	<-col.seen

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"00:00:10", "00:00:11", "00:00:12"}, col.elapsed())
	assert.True(t, mc.isStopped())
}

func TestWatcherStopsWhenSessionEnds(t *testing.T) {
	store, writer := loggedInStore()
	mc := newManualClock(time.Date(2024, 5, 6, 8, 0, 0, 0, time.Local))
	w := NewWatcher(New(&fakeBackend{}), store, WithClock(mc))

	col := newCollector()
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), col.publish) }()

	<-col.seen
	writer.Clear()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after logout")
	}
}

func TestWatcherRequiresSession(t *testing.T) {
	store, _ := session.New()
	w := NewWatcher(New(&fakeBackend{}), store)

	err := w.Run(context.Background(), func(Tick) { t.Error("unexpected tick") })
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestWatcherSnapshotWhenStopped(t *testing.T) {
	store, _ := loggedInStore()
	mc := newManualClock(time.Date(2024, 5, 6, 8, 0, 0, 0, time.Local))
	w := NewWatcher(New(&fakeBackend{}), store, WithClock(mc), WithInterval(0))

	tick := w.Snapshot()
	assert.Equal(t, "00:00:00", tick.Elapsed)
	assert.Equal(t, StatusStopped, tick.State.Status())
	assert.Equal(t, time.Second, w.interval)
}
