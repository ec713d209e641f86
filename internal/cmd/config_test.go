package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/attention/internal/config"
	"github.com/felixgeelhaar/attention/internal/errors"
)

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(env.home, "config.yaml")+"\n", res.stdout)

	custom := filepath.Join(t.TempDir(), "other.yaml")
	res = env.run("--config", custom, "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, custom+"\n", res.stdout)
}

func TestConfigSetThenGet(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("config", "set", "session.backend", "SQLite")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "✓ Set session.backend = sqlite\n", res.stdout)

	res = env.run("config", "get", "session.backend")
	require.NoError(t, res.err)
	assert.Equal(t, "sqlite\n", res.stdout)

	cfg, err := config.Load(filepath.Join(env.home, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Session.Backend)
}

func TestConfigSetDoesNotPersistFlags(t *testing.T) {
	env := newTestEnv(t)

	// run always passes --api-url; it must not end up in the file.
	res := env.run("config", "set", "logging.level", "debug")
	require.NoError(t, res.err, res.stderr)

	cfg, err := config.Load(filepath.Join(env.home, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfigSetInvalid(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("config", "set", "output.format", "xml")
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))

	res = env.run("config", "get", "providers.default")
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))
}

func TestConfigViewShowsEffectiveValues(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig("api:\n  timeout: 5s\n")

	res := env.run("config", "view", "--format", "json")
	require.NoError(t, res.err, res.stderr)

	var view struct {
		API struct {
			BaseURL string `json:"base_url"`
			Timeout string `json:"timeout"`
		} `json:"api"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, env.backend.server.URL, view.API.BaseURL)
	assert.Equal(t, "5s", view.API.Timeout)

	res = env.run("config", "view")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Configuration file: "+filepath.Join(env.home, "config.yaml"))
	assert.Contains(t, res.stdout, "timeout: 5s")
}

func TestInvalidFlagValue(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("--format", "xml", "whoami")
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))

	res = env.run("--log-level", "loud", "whoami")
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))
}
