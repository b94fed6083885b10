package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	opts, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Empty(t, opts.DatabaseDSN)
	assert.False(t, opts.TLSEnabled())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `{"address":":7000","database_dsn":"postgres://file","log_level":"warn","jwt_secret":"from-file"}`)
	t.Setenv("CONFIG", path)
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("LOG_LEVEL", "debug")

	opts, err := Load([]string{"-log-level", "error"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", opts.Port, "file beats default")
	assert.Equal(t, "postgres://env", opts.DatabaseDSN, "env beats file")
	assert.Equal(t, "error", opts.LogLevel, "flag beats env")
	assert.Equal(t, "from-file", opts.JWTSecret)
	assert.Equal(t, path, opts.Config)
}

func TestLoad_ConfigFlagBeatsEnv(t *testing.T) {
	envPath := writeConfig(t, `{"address":":1"}`)
	flagPath := writeConfig(t, `{"address":":2"}`)
	t.Setenv("CONFIG", envPath)

	opts, err := Load([]string{"-c", flagPath})
	require.NoError(t, err)
	assert.Equal(t, ":2", opts.Port)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG", writeConfig(t, `{not json`))

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while parsing config file")
}

func TestLoad_UnknownFlag(t *testing.T) {
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	_, err := Load([]string{"-nope"})
	assert.Error(t, err)
}

func TestTLSEnabled(t *testing.T) {
	assert.True(t, (&Options{TLSCert: "c", TLSKey: "k"}).TLSEnabled())
	assert.False(t, (&Options{TLSCert: "c"}).TLSEnabled())
}
