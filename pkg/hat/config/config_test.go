package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearHatdEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HATD_BASE_DIR", "HATD_LOG_FORMAT", "HATD_LOG_LEVEL", "HATD_TICK_INTERVAL_MS"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.BaseDir != "/" {
		t.Errorf("BaseDir = %q, want /", cfg.BaseDir)
	}
	if cfg.TickInterval != 100*time.Millisecond {
		t.Errorf("TickInterval = %v, want 100ms", cfg.TickInterval)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoadWithMissingFilesReturnsDefaults(t *testing.T) {
	clearHatdEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	clearHatdEnv(t)
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "hatd.yaml")
	if err := os.WriteFile(yamlPath, []byte("base_dir: /srv/hatd\nlog_format: text\ntick_interval_ms: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(yamlPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != "/srv/hatd" {
		t.Errorf("BaseDir = %q, want /srv/hatd", cfg.BaseDir)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %v, want 250ms", cfg.TickInterval)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearHatdEnv(t)
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "hatd.yaml")
	os.WriteFile(yamlPath, []byte("base_dir: /srv/hatd\n"), 0o644)

	os.Setenv("HATD_BASE_DIR", "/opt/hatd")
	defer os.Unsetenv("HATD_BASE_DIR")

	cfg, err := Load(yamlPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != "/opt/hatd" {
		t.Errorf("BaseDir = %q, want /opt/hatd (env should win)", cfg.BaseDir)
	}
}
