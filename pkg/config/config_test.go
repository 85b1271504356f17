package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mediacache", filepath.Base(cfg.General.CacheDir))
	assert.Equal(t, 20*time.Millisecond, cfg.Cache.MinFrameDelay.Duration)
	assert.True(t, cfg.General.MigrateOnStartup)
}

func TestDefaultConfigHonoursXDGCacheHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "mediacache"), DefaultConfig().General.CacheDir)
}

func TestLoadFromReaderTOML(t *testing.T) {
	t.Setenv("MEDIACACHE_DIR", "")
	cfg, err := LoadFromReader(strings.NewReader(`
[general]
cache_dir = "/var/cache/media"
log_level = "debug"

[cache]
workers = 8
max_dimension = 512
min_frame_delay = "10ms"

[display]
protocol = "halfblocks"
tick_interval = "33ms"
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/cache/media", cfg.General.CacheDir)
	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, 8, cfg.Cache.Workers)
	assert.Equal(t, 512, cfg.Cache.MaxDimension)
	assert.Equal(t, 10*time.Millisecond, cfg.Cache.MinFrameDelay.Duration)
	assert.Equal(t, "halfblocks", cfg.Display.Protocol)
	assert.Equal(t, 33*time.Millisecond, cfg.Display.TickInterval.Duration)
	assert.Equal(t, 30*time.Second, cfg.Cache.FetchTimeout.Duration, "unset keys keep defaults")
}

func TestLoadFromReaderRejectsBadDuration(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[cache]\nmin_frame_delay = \"soon\"\n"))
	assert.Error(t, err)

	_, err = LoadFromReader(strings.NewReader("[cache]\nmin_frame_delay = \"-5ms\"\n"))
	assert.Error(t, err)
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Setenv("MEDIACACHE_DIR", "")
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
general:
  cache_dir: /tmp/media
cache:
  workers: 3
  fetch_timeout: 5s
`), 0o644))

	cfg, err := LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/media", cfg.General.CacheDir)
	assert.Equal(t, 3, cfg.Cache.Workers)
	assert.Equal(t, 5*time.Second, cfg.Cache.FetchTimeout.Duration)
}

func TestLoadFromFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Cache, cfg.Cache)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDIACACHE_DIR", "/env/cache")
	t.Setenv("MEDIACACHE_PROTOCOL", "kitty")
	t.Setenv("MEDIACACHE_LOG_LEVEL", "warn")

	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "/env/cache", cfg.General.CacheDir)
	assert.Equal(t, "kitty", cfg.Display.Protocol)
	assert.Equal(t, "warn", cfg.General.LogLevel)
}

func TestLoadSearchesXDGConfigHome(t *testing.T) {
	t.Setenv("MEDIACACHE_DIR", "")
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mediacache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mediacache", "config.toml"),
		[]byte("[cache]\nworkers = 5\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Cache.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty cache dir", func(c *Config) { c.General.CacheDir = "" }},
		{"bad log level", func(c *Config) { c.General.LogLevel = "loud" }},
		{"negative workers", func(c *Config) { c.Cache.Workers = -1 }},
		{"negative max dimension", func(c *Config) { c.Cache.MaxDimension = -1 }},
		{"negative fetch bytes", func(c *Config) { c.Cache.MaxFetchBytes = -1 }},
		{"unknown protocol", func(c *Config) { c.Display.Protocol = "vt340" }},
		{"negative size", func(c *Config) { c.Display.Width = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationMarshalText(t *testing.T) {
	text, err := Duration{1500 * time.Millisecond}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText(nil))
	assert.Zero(t, d.Duration)
}
