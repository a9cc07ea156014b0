package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMustLoadAPI(t *testing.T) {
	path := writeConfig(t, `
env: dev
http:
  address: ":4001"
store:
  path: /tmp/aquamon/readings.json
log:
  level: debug
  format: text
`)

	cfg := MustLoadAPI(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":4001", cfg.HTTP.Address)
	assert.Equal(t, "/tmp/aquamon/readings.json", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// Defaults fill what the file omits.
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.WriteTimeout)
}

func TestMustLoadBridge(t *testing.T) {
	path := writeConfig(t, `
device:
  path: /dev/ttyUSB1
forward:
  endpoints:
    - http://api:3001/api/readings
    - http://localhost:3001/api/readings
spool:
  path: /tmp/aquamon/spool.db
`)

	cfg := MustLoadBridge(path)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Device.Path)
	assert.Equal(t, []string{
		"http://api:3001/api/readings",
		"http://localhost:3001/api/readings",
	}, cfg.Forward.Endpoints)
	assert.Equal(t, 5*time.Second, cfg.Device.ReadInterval)
	assert.Equal(t, []string{
		"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3",
		"/dev/ttyACM0", "/dev/ttyACM1",
	}, cfg.Device.Candidates)
	assert.Equal(t, 3*time.Second, cfg.Device.ProbeTimeout)
	assert.Equal(t, 3, cfg.Forward.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Spool.FlushInterval)
	assert.True(t, cfg.Spool.Enabled)
}

func TestMustLoad_MissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadAPI(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
