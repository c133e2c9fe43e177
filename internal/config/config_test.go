package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\nname: lobby\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "none", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Globals.Backend)
	assert.Equal(t, 5*time.Second, cfg.Globals.Redis.Refresh)
	assert.Equal(t, "lobby", cfg.Audit.Instance)
	assert.NoError(t, cfg.Validate())
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
log: {level: debug, format: json}
store: {backend: bolt, path: /tmp/s.db}
globals:
  backend: redis
  redis: {addr: "redis:6379", refresh: 250ms}
  values:
    motd: hello
scheduler: {enabled: true, interval: 2s}
audit: {redact: [password]}
`))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Globals.Redis.Refresh)
	assert.Equal(t, "hello", cfg.Globals.Values["motd"])
	assert.Equal(t, 2*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"password"}, cfg.Audit.Redact)
}

func TestValidate(t *testing.T) {
	cfg, err := Parse([]byte("version: 2\nstore: {backend: s3, encrypt: true}\naudit: {postgres: true}\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tessera.yaml version: 2")
	assert.Contains(t, err.Error(), `unknown backend "s3"`)
	assert.Contains(t, err.Error(), "TESSERA_STORE_KEY")
	assert.Contains(t, err.Error(), "TESSERA_POSTGRES_DSN")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\naudit: {postgres: true}\n"), 0o600))

	dsnFile := filepath.Join(dir, "dsn")
	require.NoError(t, os.WriteFile(dsnFile, []byte("postgres://x\n"), 0o600))
	t.Setenv(EnvPostgresDSN+"_FILE", dsnFile)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", cfg.Secrets.PostgresDSN)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "only the default path may be missing")
}
