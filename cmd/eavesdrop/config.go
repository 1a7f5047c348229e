package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the demo binary's TOML configuration.
type Config struct {
	LogLevel string      `toml:"log_level"`
	LogDev   bool        `toml:"log_dev"`
	Watch    WatchConfig `toml:"watch"`
}

// WatchConfig configures the watch subcommand.
type WatchConfig struct {
	Paths       []string `toml:"paths"`
	Recursive   bool     `toml:"recursive"`
	MetricsAddr string   `toml:"metrics_addr"`
}

func defaultDemoConfig() Config {
	return Config{
		LogLevel: "info",
		Watch:    WatchConfig{Paths: []string{"."}},
	}
}

// loadConfig reads a TOML config file. An empty or missing path yields the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultDemoConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// buildLogger constructs the logger described by cfg.
func buildLogger(cfg Config) (*zap.Logger, error) {
	if cfg.LogDev {
		return zap.NewDevelopment()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
