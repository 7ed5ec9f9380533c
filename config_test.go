package goSession

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }},
		{name: "short secret", mutate: func(c *Config) { c.Secret = "short" }},
		{name: "bad base url scheme", mutate: func(c *Config) { c.BaseURL = "ftp://app.example.com" }},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "https://" }},
		{name: "missing backend", mutate: func(c *Config) { c.Backend.BaseURL = "" }},
		{name: "relative backend", mutate: func(c *Config) { c.Backend.BaseURL = "/auth" }},
		{name: "zero backend timeout", mutate: func(c *Config) { c.Backend.Timeout = 0 }},
		{name: "negative payload cap", mutate: func(c *Config) { c.Backend.MaxPayloadBytes = -1 }},
		{name: "blank prefix", mutate: func(c *Config) { c.Session.RedisPrefix = "  " }},
		{name: "negative retention", mutate: func(c *Config) { c.Session.ExpiredRetention = -time.Second }},
		{name: "zero retention", mutate: func(c *Config) { c.Session.ExpiredRetention = 0 }, ok: true},
		{name: "throttle without attempts", mutate: func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.MaxLoginAttempts = 0
		}},
		{name: "throttle without cooldown", mutate: func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.LoginCooldown = 0
		}},
		{name: "throttle fields ignored when disabled", mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 }, ok: true},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "trace" }},
		{name: "unknown log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "text format", mutate: func(c *Config) { c.Logging.Format = "text" }, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaultConfigNeedsSecretAndBackend(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected default config to be incomplete, got %v", err)
	}
	if !cfg.Session.SealRecords || cfg.Refresh.Deduplicate {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosession.yaml")
	data := []byte(`
base_url: https://app.example.com
secret: yaml-secret-0123456789abcdef
backend:
  base_url: https://identity.example.com
  timeout: 3s
session:
  redis_prefix: app
  expired_retention: 1m
refresh:
  deduplicate: true
logging:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Backend.BaseURL != "https://identity.example.com" || cfg.Backend.Timeout != 3*time.Second {
		t.Fatalf("unexpected backend %+v", cfg.Backend)
	}
	if cfg.Session.RedisPrefix != "app" || cfg.Session.ExpiredRetention != time.Minute {
		t.Fatalf("unexpected session %+v", cfg.Session)
	}
	if !cfg.Refresh.Deduplicate || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected overlay %+v", cfg)
	}
	if cfg.Backend.LoginPath != "/auth/login" || !cfg.Session.SealRecords {
		t.Fatalf("defaults must survive the overlay, got %+v", cfg)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GOSESSION_SECRET", "env-secret-0123456789abcdef")
	t.Setenv("IDENTITY_BACKEND_URL", "http://identity.internal:8000")
	t.Setenv("IDENTITY_BACKEND_TIMEOUT", "2s")
	t.Setenv("LOGIN_THROTTLE_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Secret != "env-secret-0123456789abcdef" || cfg.Backend.BaseURL != "http://identity.internal:8000" {
		t.Fatalf("unexpected env overlay %+v", cfg)
	}
	if cfg.Backend.Timeout != 2*time.Second || !cfg.Security.EnableLoginThrottle || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected env overlay %+v", cfg)
	}
	if cfg.Security.MaxLoginAttempts != 5 {
		t.Fatalf("expected default attempts, got %d", cfg.Security.MaxLoginAttempts)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("GOSESSION_SECRET", "")
	t.Setenv("IDENTITY_BACKEND_URL", "http://identity.internal")

	if _, err := LoadConfig(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	cfg.BaseURL = "https://other.example.com"
	if got := engine.ResolveRedirect("https://evil.example.com"); got != "https://app.example.com" {
		t.Fatalf("engine config must not follow caller mutation, got %q", got)
	}
}
