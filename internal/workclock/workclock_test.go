package workclock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/attention/internal/errors"
)

type fakeBackend struct {
	mu       sync.Mutex
	last     string
	lastErr  error
	startErr error
	stopErr  error
	calls    []string
}

func (f *fakeBackend) LastCheckIn(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "last")
	return f.last, f.lastErr
}

func (f *fakeBackend) StartClock(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeBackend) StopClock(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	return f.stopErr
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 6, 9, 15, 30, 0, time.Local)
}

func TestStartThenStop(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	clock := New(backend, WithNow(fixedNow))

	assert.Equal(t, StatusStopped, clock.State().Status())

	state, err := clock.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, state.Status())
	assert.Equal(t, "09:15:30", state.LastCheckIn)

	state, err = clock.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, state.Status())
	assert.Empty(t, state.LastCheckIn)

	assert.Equal(t, []string{"start", "stop"}, backend.calls)
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name    string
		last    string
		err     error
		start   State
		want    State
		wantErr bool
	}{
		{
			name: "open check-in",
			last: "08:00:00",
			want: State{Running: true, LastCheckIn: "08:00:00"},
		},
		{
			name:  "no check-in",
			start: State{Running: true, LastCheckIn: "08:00:00"},
			want:  State{},
		},
		{
			name:  "rejected lookup means stopped",
			err:   errors.NewRejectedError("load last check-in", 404, ""),
			start: State{Running: true, LastCheckIn: "08:00:00"},
			want:  State{},
		},
		{
			name:    "network failure keeps state",
			err:     errors.NewNetworkError("load last check-in", fmt.Errorf("refused")),
			start:   State{Running: true, LastCheckIn: "08:00:00"},
			want:    State{Running: true, LastCheckIn: "08:00:00"},
			wantErr: true,
		},
		{
			name:    "missing session keeps state",
			err:     errors.NewSessionMissingError("load last check-in"),
			want:    State{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := New(&fakeBackend{last: tt.last, lastErr: tt.err})
			clock.set(tt.start)

			got, err := clock.Refresh(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, clock.State())
		})
	}
}

func TestStartFailureKeepsState(t *testing.T) {
	backend := &fakeBackend{startErr: errors.NewRejectedError("start clock", 400, "Ya existe un registro abierto")}
	clock := New(backend)

	state, err := clock.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ya existe un registro abierto")
	assert.False(t, state.Running)
}

func TestStopFailureKeepsState(t *testing.T) {
	backend := &fakeBackend{stopErr: errors.NewNetworkError("stop clock", fmt.Errorf("timeout"))}
	clock := New(backend)
	clock.set(State{Running: true, LastCheckIn: "08:00:00"})

	state, err := clock.Stop(context.Background())
	require.Error(t, err)
	assert.Equal(t, State{Running: true, LastCheckIn: "08:00:00"}, state)
}

func TestInvalidTransitionsAreLocal(t *testing.T) {
	backend := &fakeBackend{}
	clock := New(backend)

	_, err := clock.Stop(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	clock.set(State{Running: true, LastCheckIn: "08:00:00"})
	_, err = clock.Start(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))

	assert.Empty(t, backend.calls)
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	clock := New(backend, WithNow(fixedNow))

	state, err := clock.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, state.Running)

	state, err = clock.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, state.Running)

	assert.Equal(t, []string{"start", "stop"}, backend.calls)
}

func TestWorkClockElapsed(t *testing.T) {
	clock := New(&fakeBackend{})
	assert.Equal(t, "00:00:00", clock.Elapsed(fixedNow()))

	clock.set(State{Running: true, LastCheckIn: "08:00:00"})
	assert.Equal(t, "01:15:30", clock.Elapsed(fixedNow()))
}
