package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "storage", cfg.Transport.Type)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "ulid", cfg.Transport.KeyGenerator)
	assert.Equal(t, 5*time.Second, cfg.Dispatcher.PollInterval)
	assert.Equal(t, DefaultSizes(), cfg.Processor.Sizes)
	assert.Equal(t, "none", cfg.Notifier.PubSub.Driver)
	assert.Equal(t, 3*time.Second, cfg.Notifier.PubSub.Redis.ReadTimeout)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
profile:
  user_id: 5b3d2c8e-0f44-4b1a-9d6e-2c1f0a9b7e31
processor:
  jpeg_quality: 70
  sizes:
    - name: preview
      width: 64
      height: 64
      mode: fill
    - name: complete
      width: 512
      height: 512
      mode: fit
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("NOTIFIER_DRIVER", "redis")
	t.Setenv("PORT", "9100")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "5b3d2c8e-0f44-4b1a-9d6e-2c1f0a9b7e31", cfg.Profile.UserID)
	assert.Equal(t, 70, cfg.Processor.JpegQuality)
	require.Len(t, cfg.Processor.Sizes, 2)
	assert.Equal(t, 64, cfg.Processor.Sizes[0].Width)
	assert.Equal(t, "redis", cfg.Notifier.PubSub.Driver)
	assert.Equal(t, 9100, cfg.Server.Port)
}
