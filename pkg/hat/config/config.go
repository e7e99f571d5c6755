// Package config loads hatd's small daemon configuration: base directory
// overrides, tick interval, and logging options. Layering follows
// pkg/goclaw/copilot/loader.go's pattern: defaults, then an optional YAML
// file, then HATD_*-prefixed environment variables (loaded from .env via
// godotenv when present), then cobra flag overrides applied by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is hatd's runtime configuration.
type Config struct {
	BaseDir      string        `yaml:"base_dir"`
	TickInterval time.Duration `yaml:"-"`
	LogFormat    string        `yaml:"log_format"`
	LogLevel     string        `yaml:"log_level"`

	// TickIntervalMS mirrors TickInterval for YAML, since time.Duration
	// doesn't round-trip through yaml.v3 as milliseconds on its own.
	TickIntervalMS int `yaml:"tick_interval_ms"`
}

// Default returns the configuration spec.md assumes absent overrides:
// base directory "/", a 100ms tick, JSON logs at info level.
func Default() Config {
	return Config{
		BaseDir:        "/",
		TickInterval:   100 * time.Millisecond,
		TickIntervalMS: 100,
		LogFormat:      "json",
		LogLevel:       "info",
	}
}

// Load builds a Config by layering, in increasing priority: defaults, an
// optional YAML file at yamlPath (skipped if it doesn't exist), and
// HATD_*-prefixed environment variables (after loading envFile via
// godotenv, silently ignored if missing — matching loadEnvFiles's
// "silently ignore if not found" behavior).
func Load(yamlPath, envFile string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", yamlPath, err)
			}
			if cfg.TickIntervalMS > 0 {
				cfg.TickInterval = time.Duration(cfg.TickIntervalMS) * time.Millisecond
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
	}

	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HATD_BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv("HATD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("HATD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HATD_TICK_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.TickInterval = time.Duration(ms) * time.Millisecond
			cfg.TickIntervalMS = ms
		}
	}
}
