package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9000\nlog:\n  level: debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")

	v, err := Load(dir, "config")
	require.NoError(t, err)

	assert.Equal(t, 9000, v.GetInt("server.port"))
	assert.Equal(t, "warn", v.GetString("log.level"))
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PROFILE_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("PROFILE_TEST_KEY", "default"))
	assert.Equal(t, "default", GetEnv("PROFILE_TEST_KEY_MISSING", "default"))
}
