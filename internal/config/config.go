// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package config loads bridge configuration from defaults, an optional
// YAML file, and command-line flags, in that precedence order.
package config

import (
	"log/slog"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Log configures logging output.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "text" or "json".
	Format string `koanf:"format"`
}

// Metrics configures the observability endpoint.
type Metrics struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// Host configures the external host process connection. An empty
// Command selects the in-process demo host.
type Host struct {
	Command      string   `koanf:"command"`
	Args         []string `koanf:"args"`
	DialAttempts int      `koanf:"dial_attempts"`
}

// Config is the full bridge configuration.
type Config struct {
	Log     Log     `koanf:"log"`
	Metrics Metrics `koanf:"metrics"`
	Host    Host    `koanf:"host"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Enabled: false, Listen: "127.0.0.1:9090"},
		Host:    Host{DialAttempts: 5},
	}
}

// Load merges defaults, the YAML file at path (skipped when path is
// empty or the file does not exist), and any set flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, oops.In("config").With("path", path).
					Wrapf(err, "failed to load config file")
			}
		} else if !os.IsNotExist(err) {
			return Config{}, oops.In("config").With("path", path).
				Wrapf(err, "failed to read config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.In("config").Wrapf(err, "failed to load flags")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.In("config").Wrapf(err, "failed to unmarshal config")
	}

	// Unset flags surface as zero values; fall back to the defaults so a
	// bare flag set never erases them.
	defaults := Defaults()
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = defaults.Metrics.Listen
	}
	if cfg.Host.DialAttempts <= 0 {
		cfg.Host.DialAttempts = defaults.Host.DialAttempts
	}

	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return Config{}, oops.In("config").With("format", cfg.Log.Format).
			New("log format must be text or json")
	}
	return cfg, nil
}

// SlogLevel maps the configured level to slog.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, oops.In("config").With("level", c.Log.Level).
			New("log level must be debug, info, warn, or error")
	}
}
