package goSession

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full Engine configuration. Build it with [DefaultConfig] or
// [LoadConfig], adjust fields, and hand it to [Builder.WithConfig]. The
// Builder clones it; later edits have no effect on a built Engine.
type Config struct {
	// BaseURL is the application origin used as the fallback redirect target.
	BaseURL string `yaml:"base_url" env:"GOSESSION_BASE_URL"`
	// Secret keys the at-rest sealing of session records. Required.
	Secret string `yaml:"secret" env:"GOSESSION_SECRET"`

	Backend  BackendConfig  `yaml:"backend"`
	Session  SessionConfig  `yaml:"session"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Security SecurityConfig `yaml:"security"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig addresses the identity backend.
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url" env:"IDENTITY_BACKEND_URL"`
	LoginPath       string        `yaml:"login_path" env:"IDENTITY_BACKEND_LOGIN_PATH"`
	RefreshPath     string        `yaml:"refresh_path" env:"IDENTITY_BACKEND_REFRESH_PATH"`
	Timeout         time.Duration `yaml:"timeout" env:"IDENTITY_BACKEND_TIMEOUT"`
	MaxPayloadBytes int64         `yaml:"max_payload_bytes" env:"IDENTITY_BACKEND_MAX_PAYLOAD_BYTES"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls record persistence.
type SessionConfig struct {
	RedisPrefix string `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX"`
	// ExpiredRetention keeps a record past RefreshUntil so reads observe
	// RefreshTokenExpired before the key disappears.
	ExpiredRetention time.Duration `yaml:"expired_retention" env:"SESSION_EXPIRED_RETENTION"`
	// SealRecords encrypts records at rest with a key derived from Secret.
	SealRecords bool `yaml:"seal_records" env:"SESSION_SEAL_RECORDS"`
}

// RefreshConfig controls concurrent refresh behavior.
type RefreshConfig struct {
	// Deduplicate collapses concurrent reads of one session into a single
	// store read and at most one refresh exchange.
	Deduplicate bool `yaml:"deduplicate" env:"SESSION_REFRESH_DEDUPLICATE"`
}

// SecurityConfig controls the failed-login throttle.
type SecurityConfig struct {
	EnableLoginThrottle bool          `yaml:"enable_login_throttle" env:"LOGIN_THROTTLE_ENABLED"`
	EnableIPThrottle    bool          `yaml:"enable_ip_throttle" env:"LOGIN_THROTTLE_BY_IP"`
	MaxLoginAttempts    int           `yaml:"max_login_attempts" env:"LOGIN_MAX_ATTEMPTS"`
	LoginCooldown       time.Duration `yaml:"login_cooldown" env:"LOGIN_COOLDOWN"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"AUDIT_ENABLED"`
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL"`
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS"`
}

// LoggingConfig controls the default slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" (default) or "text"
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Secret and
// Backend.BaseURL are left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:3000",
		Backend: BackendConfig{
			LoginPath:       "/auth/login",
			RefreshPath:     "/auth/refresh",
			Timeout:         10 * time.Second,
			MaxPayloadBytes: 64 << 10,
		},
		Session: SessionConfig{
			RedisPrefix:      "gs",
			ExpiredRetention: 10 * time.Minute,
			SealRecords:      true,
		},
		Refresh: RefreshConfig{
			Deduplicate: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle: false,
			EnableIPThrottle:    false,
			MaxLoginAttempts:    5,
			LoginCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig starts from [DefaultConfig], overlays the YAML file at path
// when path is non-empty, then overlays environment variables. The result is
// validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Config holds no reference types, so a value copy is a deep copy.
func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field. Every error matches
// [ErrInvalidConfig].
func (c *Config) Validate() error {
	if c.Secret == "" {
		return invalidConfig("Secret is required")
	}
	if len(c.Secret) < session.MinSecretLength {
		return invalidConfig("Secret must be at least %d bytes", session.MinSecretLength)
	}
	if err := validateOrigin("BaseURL", c.BaseURL); err != nil {
		return err
	}

	// Backend
	if c.Backend.BaseURL == "" {
		return invalidConfig("Backend BaseURL is required")
	}
	if err := validateOrigin("Backend BaseURL", c.Backend.BaseURL); err != nil {
		return err
	}
	if c.Backend.Timeout <= 0 {
		return invalidConfig("Backend Timeout must be > 0")
	}
	if c.Backend.MaxPayloadBytes < 0 {
		return invalidConfig("Backend MaxPayloadBytes must be >= 0")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return invalidConfig("Session RedisPrefix must not be blank")
	}
	if c.Session.ExpiredRetention < 0 {
		return invalidConfig("Session ExpiredRetention must be >= 0")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return invalidConfig("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldown <= 0 {
			return invalidConfig("Security LoginCooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0")
	}

	// Logging
	if _, ok := parseLevel(c.Logging.Level); !ok {
		return invalidConfig("Logging Level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return invalidConfig("Logging Format must be 'json' or 'text'")
	}

	return nil
}

func validateOrigin(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalidConfig("%s is not a valid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidConfig("%s must use http or https", field)
	}
	if u.Host == "" {
		return invalidConfig("%s must include a host", field)
	}
	return nil
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
