package cmd

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// fakeClockBackend keeps the open check-in like the real endpoints do.
type fakeClockBackend struct {
	mu      sync.Mutex
	checkIn string
}

func (f *fakeClockBackend) install(env *testEnv) {
	env.backend.on("GET /reloj-control/last-check-in", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lastCheckIn":"` + f.checkIn + `"}`))
	})
	env.backend.on("POST /reloj-control/start", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.checkIn = "09:00:00"
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	env.backend.on("POST /reloj-control/stop", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.checkIn = ""
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func fixedNow(t *testing.T, h, m, s int) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return time.Date(2024, 5, 6, h, m, s, 0, time.Local) }
	t.Cleanup(func() { nowFunc = prev })
}

func TestClockStartThenStop(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{}).install(env)
	fixedNow(t, 9, 0, 0)

	res := env.run("clock", "status")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "Estado: DETENIDO\n", res.stdout)

	res = env.run("clock", "start")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Estado: EN MARCHA")
	assert.Contains(t, res.stdout, "Entrada: 09:00:00")

	res = env.run("clock", "stop", "--format", "json")
	require.NoError(t, res.err, res.stderr)
	assert.JSONEq(t, `{"status":"DETENIDO","running":false,"elapsed":"00:00:00"}`, res.stdout)

	assert.Len(t, env.backend.find("POST /reloj-control/start"), 1)
	assert.Len(t, env.backend.find("POST /reloj-control/stop"), 1)
}

func TestClockStatusShowsElapsed(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{checkIn: "08:00:00"}).install(env)
	fixedNow(t, 9, 30, 15)

	res := env.run("clock", "status", "--format", "yaml")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "status: EN MARCHA")
	assert.Contains(t, res.stdout, "01:30:15")
}

func TestClockInvalidTransitionIsLocal(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{}).install(env)

	res := env.run("clock", "stop")
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeInvalidState))
	assert.Empty(t, env.backend.find("POST /reloj-control/stop"))
}

func TestClockToggle(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{}).install(env)
	fixedNow(t, 9, 0, 0)

	require.NoError(t, env.run("clock", "toggle").err)
	require.NoError(t, env.run("clock", "toggle").err)

	assert.Len(t, env.backend.find("POST /reloj-control/start"), 1)
	assert.Len(t, env.backend.find("POST /reloj-control/stop"), 1)
}

func TestClockStartFailureKeepsServerMessage(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{}).install(env)
	env.backend.reply("POST /reloj-control/start", http.StatusConflict, map[string]string{"message": "ya marcaste entrada"})

	res := env.run("clock", "start")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeRejected))
	assert.Contains(t, res.err.Error(), "ya marcaste entrada")
}

func TestClockWatchPlain(t *testing.T) {
	env := newTestEnv(t)
	env.login()
	(&fakeClockBackend{checkIn: "08:00:00"}).install(env)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	res := env.runContext(ctx, "", "clock", "watch", "--plain")
	require.NoError(t, res.err, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "EN MARCHA")
}
