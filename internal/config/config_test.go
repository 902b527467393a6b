package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "https://api.example.com"
  ws_url: "wss://api.example.com/ws"
control:
  host: "127.0.0.1"
  port: 7070
storage:
  path: "/tmp/client.db"
sync:
  poll_interval_seconds: 10
  reconnect_max_seconds: 60
log:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "wss://api.example.com/ws", cfg.Server.WSURL)
	assert.Equal(t, 7070, cfg.Control.Port)
	assert.Equal(t, 10*time.Second, cfg.Sync.PollInterval())
	assert.Equal(t, 60*time.Second, cfg.Sync.ReconnectMax())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "https://api.example.com"
  ws_url: "wss://api.example.com/ws"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Sync.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.Sync.ReconnectMax())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresServerEndpoints(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  ws_url: "wss://api.example.com/ws"
`))
	assert.ErrorContains(t, err, "base_url")

	_, err = Load(writeConfig(t, `
server:
  base_url: "https://api.example.com"
`))
	assert.ErrorContains(t, err, "ws_url")
}
