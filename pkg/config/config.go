// Package config provides TOML-based configuration for mediacache.
package config

import (
	"fmt"
	"strings"
)

// Config is the top-level configuration.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Display DisplayConfig `toml:"display" yaml:"display"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// CacheDir is the cache root; "img" and "gif" live below it.
	CacheDir         string `toml:"cache_dir" yaml:"cache_dir"`
	LogLevel         string `toml:"log_level" yaml:"log_level"`
	LogFile          string `toml:"log_file" yaml:"log_file"`
	LogMaxSizeMB     int    `toml:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups    int    `toml:"log_max_backups" yaml:"log_max_backups"`
	MigrateOnStartup bool   `toml:"migrate_on_startup" yaml:"migrate_on_startup"`
}

// CacheConfig tunes the load pipeline.
type CacheConfig struct {
	Workers       int      `toml:"workers" yaml:"workers"`
	MaxDimension  int      `toml:"max_dimension" yaml:"max_dimension"`
	MinFrameDelay Duration `toml:"min_frame_delay" yaml:"min_frame_delay"`
	FetchTimeout  Duration `toml:"fetch_timeout" yaml:"fetch_timeout"`
	MaxFetchBytes int64    `toml:"max_fetch_bytes" yaml:"max_fetch_bytes"`
}

// DisplayConfig controls the terminal viewer.
type DisplayConfig struct {
	// Protocol is "auto", "kitty", "iterm2", "sixel", "halfblocks" or "none".
	Protocol      string   `toml:"protocol" yaml:"protocol"`
	Width         int      `toml:"width" yaml:"width"`
	Height        int      `toml:"height" yaml:"height"`
	RenderCacheMB int      `toml:"render_cache_mb" yaml:"render_cache_mb"`
	TickInterval  Duration `toml:"tick_interval" yaml:"tick_interval"`
}

var validProtocols = map[string]bool{
	"":           true,
	"auto":       true,
	"kitty":      true,
	"iterm2":     true,
	"sixel":      true,
	"halfblocks": true,
	"none":       true,
}

var validLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.General.CacheDir == "" {
		return fmt.Errorf("general.cache_dir must be set")
	}
	if !validLogLevels[strings.ToLower(c.General.LogLevel)] {
		return fmt.Errorf("general.log_level %q is not one of debug, info, warn, error", c.General.LogLevel)
	}
	if c.Cache.Workers < 0 {
		return fmt.Errorf("cache.workers must be >= 0, got %d", c.Cache.Workers)
	}
	if c.Cache.MaxDimension < 0 {
		return fmt.Errorf("cache.max_dimension must be >= 0, got %d", c.Cache.MaxDimension)
	}
	if c.Cache.MaxFetchBytes < 0 {
		return fmt.Errorf("cache.max_fetch_bytes must be >= 0, got %d", c.Cache.MaxFetchBytes)
	}
	if !validProtocols[strings.ToLower(c.Display.Protocol)] {
		return fmt.Errorf("display.protocol %q is not supported", c.Display.Protocol)
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return fmt.Errorf("display size must be >= 0, got %dx%d", c.Display.Width, c.Display.Height)
	}
	return nil
}
