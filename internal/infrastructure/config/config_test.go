package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_DB_PATH", "")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, DefaultDBPath, cfg.Storage.Path)
	assert.Equal(t, 5*time.Second, cfg.Storage.BusyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Lock.Timeout)
	assert.False(t, cfg.Stock.StrictRevertOrder)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultDBPath+".lock", cfg.LockPath())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("APP_DB_PATH", "")

	yaml := "storage:\n  path: custom.db\n  busy_timeout: 2s\nstock:\n  strict_revert_order: true\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stockctl.yaml"), []byte(yaml), 0o644))

	t.Setenv("STOCK_LOCK_TIMEOUT", "250ms")
	t.Setenv("STOCK_LOG_FILE", "stockctl.log")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "custom.db", cfg.Storage.Path)
	assert.Equal(t, 2*time.Second, cfg.Storage.BusyTimeout)
	assert.True(t, cfg.Stock.StrictRevertOrder)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Lock.Timeout)
	assert.Equal(t, "stockctl.log", cfg.Log.File)
}

func TestLoad_AppDBPath(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_DB_PATH", "/srv/buvette/association.db")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "/srv/buvette/association.db", cfg.Storage.Path)

	t.Setenv("STOCK_STORAGE_PATH", "explicit.db")
	cfg, err = Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "explicit.db", cfg.Storage.Path)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("APP_DB_PATH", "")

	envFile := filepath.Join(dir, "stock.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STOCK_STOCK_STRICT_REVERT_ORDER=true\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("STOCK_STOCK_STRICT_REVERT_ORDER") })

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.True(t, cfg.Stock.StrictRevertOrder)

	_, err = Load(Options{EnvFile: filepath.Join(dir, "missing.env")})
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_DB_PATH", "")

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STOCK_STORAGE_DRIVER": "mysql"}},
		{"postgres without dsn", map[string]string{"STOCK_STORAGE_DRIVER": "postgres"}},
		{"negative lock timeout", map[string]string{"STOCK_LOCK_TIMEOUT": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(Options{})
			assert.Error(t, err)
		})
	}
}

func TestLockPath(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Driver: DriverPostgres, DSN: "postgres://x"}}
	assert.Equal(t, "data/stockctl.lock", cfg.LockPath())

	cfg.Lock.Path = "/run/stockctl.lock"
	assert.Equal(t, "/run/stockctl.lock", cfg.LockPath())
}
