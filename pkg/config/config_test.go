package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty address",
			mutate: func(c *Config) { c.Relay.Address = "" },
		},
		{
			name:   "zero ping interval",
			mutate: func(c *Config) { c.Relay.PingInterval = 0 },
		},
		{
			name: "pong timeout not beyond ping interval",
			mutate: func(c *Config) {
				c.Relay.PingInterval = Duration(30 * time.Second)
				c.Relay.PongTimeout = Duration(30 * time.Second)
			},
		},
		{
			name:   "zero write timeout",
			mutate: func(c *Config) { c.Relay.WriteTimeout = 0 },
		},
		{
			name:   "negative message limit",
			mutate: func(c *Config) { c.Relay.MaxMessageBytes = -1 },
		},
		{
			name:   "empty log level",
			mutate: func(c *Config) { c.Logging.Level = "" },
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.JaegerURL = ""
			},
		},
		{
			name: "tracing sample rate out of range",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "rate limiting enabled without budget",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.ConnectionsPerMinute = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error, got: %v", err)
	}
	if cfg.Relay.Address != ":8080" {
		t.Fatalf("expected default address, got %q", cfg.Relay.Address)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
relay:
  address: ":9999"
  ping_interval: 15s
  pong_timeout: 45s
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Relay.Address != ":9999" {
		t.Errorf("address not overridden, got %q", cfg.Relay.Address)
	}
	if cfg.Relay.PingInterval.Std() != 15*time.Second {
		t.Errorf("ping interval not overridden, got %v", cfg.Relay.PingInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not overridden, got %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if !cfg.Monitoring.PrometheusEnabled {
		t.Error("prometheus default lost")
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
relay:
  address: ""
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid configuration error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BEAMSHARE_RELAY_ADDRESS", ":7070")
	t.Setenv("BEAMSHARE_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Relay.Address != ":7070" {
		t.Errorf("env address override lost, got %q", cfg.Relay.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env log level override lost, got %q", cfg.Logging.Level)
	}
}
