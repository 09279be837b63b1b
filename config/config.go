// Package config loads run settings for grbltest from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the settings for a fixture run.
type Config struct {
	Port string
	Baud int

	// Timeout bounds each line read from the controller.
	Timeout time.Duration
	// ReadyTimeout bounds the wait for the controller to accept a transfer.
	ReadyTimeout time.Duration
	// UntilTimeout bounds `<...` ops; zero waits forever.
	UntilTimeout time.Duration

	MountPrefix string

	Reset       bool
	ResetBanner string

	LogLevel string
}

type rawConfig struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	Timeout      string `toml:"timeout"`
	ReadyTimeout string `toml:"ready_timeout"`
	UntilTimeout string `toml:"until_timeout"`
	MountPrefix  string `toml:"mount_prefix"`
	Reset        *bool  `toml:"reset"`
	ResetBanner  string `toml:"reset_banner"`
	LogLevel     string `toml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         "/dev/ttyUSB0",
		Baud:         115200,
		Timeout:      2 * time.Second,
		ReadyTimeout: 2 * time.Second,
		MountPrefix:  "/littlefs",
		Reset:        true,
		ResetBanner:  "Grbl",
		LogLevel:     "info",
	}
}

// Load reads path on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw rawConfig
	_, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if raw.Port != "" {
		cfg.Port = raw.Port
	}
	if raw.Baud != 0 {
		cfg.Baud = raw.Baud
	}
	if raw.MountPrefix != "" {
		cfg.MountPrefix = raw.MountPrefix
	}
	if raw.Reset != nil {
		cfg.Reset = *raw.Reset
	}
	if raw.ResetBanner != "" {
		cfg.ResetBanner = raw.ResetBanner
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", raw.Timeout, &cfg.Timeout},
		{"ready_timeout", raw.ReadyTimeout, &cfg.ReadyTimeout},
		{"until_timeout", raw.UntilTimeout, &cfg.UntilTimeout},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		*d.dst, err = time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %s: %w", path, d.name, err)
		}
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("port is required")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.ReadyTimeout <= 0 {
		return fmt.Errorf("ready_timeout must be positive")
	}
	if cfg.UntilTimeout < 0 {
		return fmt.Errorf("until_timeout must not be negative")
	}
	return nil
}
