package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3333, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:3333", cfg.Server.Address())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "Asia/Tokyo", cfg.Scheduler.Timezone)
	assert.Equal(t, 5*time.Second, cfg.Onvif.SoapTimeout)
	assert.Equal(t, 2*time.Second, cfg.Onvif.DiscoveryTimeout)
	assert.Equal(t, 50, cfg.Onvif.DiscoveryConcurrency)
	assert.True(t, cfg.FFmpeg.GpuProbe)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"server":  map[string]any{"port": 8090},
		"storage": map[string]any{"base_dir": "/var/lib/camarr"},
		"logging": map[string]any{"level": "debug", "format": "text"},
	}
	buf, err := yaml.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/camarr", cfg.Storage.BaseDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	// Untouched sections keep defaults.
	assert.Equal(t, "Asia/Tokyo", cfg.Scheduler.Timezone)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing base dir", func(t *testing.T) {
		cfg := base()
		cfg.Storage.BaseDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log level", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad timezone", func(t *testing.T) {
		cfg := base()
		cfg.Scheduler.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate())
	})
}

func TestStoragePaths(t *testing.T) {
	s := StorageConfig{
		BaseDir:      "/data",
		StreamDir:    "streams",
		RecordingDir: "recordings",
		ThumbnailDir: "thumbnails",
	}
	assert.Equal(t, filepath.Join("/data", "streams"), s.StreamPath())
	assert.Equal(t, filepath.Join("/data", "recordings"), s.RecordingPath())
	assert.Equal(t, filepath.Join("/data", "recordings", "thumbnails"), s.ThumbnailPath())

	cfg := Config{Storage: s}
	assert.Equal(t, filepath.Join("/data", "cameras.db"), cfg.DatabasePath())
	cfg.Database.Path = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath())
}
