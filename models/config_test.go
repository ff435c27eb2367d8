package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("LoadConfig() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "concurrency: 4\ndelay_seconds: 2.5\nquality_low: 0.2\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.DelaySeconds != 2.5 {
		t.Errorf("delay_seconds = %v, want 2.5", cfg.DelaySeconds)
	}
	if cfg.QualityLow != 0.2 {
		t.Errorf("quality_low = %v, want 0.2", cfg.QualityLow)
	}
	// Untouched keys keep their defaults.
	if cfg.UserAgent != DefaultConfig().UserAgent {
		t.Errorf("user_agent = %q, want default", cfg.UserAgent)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("concurrency: 0\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() should reject concurrency 0")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, false},
		{"zero per-domain", func(c *Config) { c.PerDomainMax = 0 }, false},
		{"zero timeout", func(c *Config) { c.TimeoutSeconds = 0 }, false},
		{"inverted quality thresholds", func(c *Config) { c.QualityLow, c.QualityHigh = 0.8, 0.3 }, false},
		{"similarity above one", func(c *Config) { c.SimilarityThreshold = 1.5 }, false},
		{"similarity zero", func(c *Config) { c.SimilarityThreshold = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestConfigDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeoutSeconds = 7
	cfg.DelaySeconds = 0.5

	if got := cfg.Timeout(); got != 7*time.Second {
		t.Errorf("Timeout() = %v, want 7s", got)
	}
	if got := cfg.DomainDelay(); got != 500*time.Millisecond {
		t.Errorf("DomainDelay() = %v, want 500ms", got)
	}
}
