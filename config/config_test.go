package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ostd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), flags(t))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Addr:           ":3000",
		Store:          "postgres",
		MaxConns:       20,
		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 10 * time.Second,
	}, cfg)
}

func TestLayering(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeFile(t, `
addr = ":4000"
store = "memory"
log_level = "debug"
request_timeout = "3s"
`)

	cfg, err := LoadFile(path, flags(t))
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Addr)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)

	// Env beats the file.
	t.Setenv("OST_ADDR", ":5000")
	t.Setenv("OST_LOG_FORMAT", "json")
	cfg, err = LoadFile(path, flags(t))
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Explicit flags beat env; unset flags leave it alone.
	cfg, err = LoadFile(path, flags(t, "--addr", ":6000", "--max-conns", "4"))
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Addr)
	assert.EqualValues(t, 4, cfg.MaxConns)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	cfg, err := LoadFile("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env/db", cfg.DatabaseURL)

	t.Setenv("OST_DATABASE_URL", "postgres://prefixed/db")
	cfg, err = LoadFile("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed/db", cfg.DatabaseURL)

	cfg, err = LoadFile("", flags(t, "--database-url", "postgres://flag/db"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", cfg.DatabaseURL)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadFile("", flags(t, "--store", "sqlite"))
	assert.ErrorContains(t, err, "store must be postgres or memory")

	_, err = LoadFile("", flags(t, "--log-format", "xml"))
	assert.ErrorContains(t, err, "log_format")
}

func TestBadFile(t *testing.T) {
	path := writeFile(t, "addr = ")
	_, err := LoadFile(path, nil)
	assert.Error(t, err)
}
