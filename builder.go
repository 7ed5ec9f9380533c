package goSession

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     SessionStore
	exchanger Exchanger
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time
	observer  Observer

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the default session store and
// the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore replaces the Redis session store.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

// WithExchanger replaces the HTTP exchange client built from Config.Backend.
func (b *Builder) WithExchanger(ex Exchanger) *Builder {
	b.exchanger = ex
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for validity decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithObserver attaches o to every session read and refresh exchange.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// Build validates the configuration and wires the Engine. It fails fast when
// the secret or backend address is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		var sealer *session.Sealer
		if cfg.Session.SealRecords {
			s, err := session.NewSealer(cfg.Secret)
			if err != nil {
				return nil, err
			}
			sealer = s
		}
		store = session.NewStore(b.redis, cfg.Session.RedisPrefix, sealer)
	}

	// -------- EXCHANGE CLIENT --------
	ex := b.exchanger
	if ex == nil {
		client, err := exchange.NewClient(exchange.Config{
			BaseURL:         cfg.Backend.BaseURL,
			LoginPath:       cfg.Backend.LoginPath,
			RefreshPath:     cfg.Backend.RefreshPath,
			Timeout:         cfg.Backend.Timeout,
			MaxPayloadBytes: cfg.Backend.MaxPayloadBytes,
		})
		if err != nil {
			return nil, err
		}
		ex = client
	}

	logger := b.logger
	if logger == nil {
		logger = NewLogger(cfg.Logging, nil)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:   cfg,
		store:    store,
		exchange: ex,
		decoder:  jwt.NewDecoder(),
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
		observer: b.observer,
	}

	if cfg.Security.EnableLoginThrottle {
		if b.redis == nil {
			return nil, errors.New("login throttle requires redis client")
		}
		engine.limiter = rate.New(b.redis, rate.Config{
			KeyPrefix:        cfg.Session.RedisPrefix,
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
		})
	}

	sink := b.auditSink
	if sink == nil {
		sink = audit.NewSlogSink(logger)
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	engine.flows = flows.Deps{
		Read: flows.ReadDeps{
			Now:          now,
			Exchange:     ex,
			DecodeExpiry: engine.decoder.ExpiresAt,
		},
		Login: flows.LoginDeps{
			Now:          now,
			Exchange:     ex,
			Decode:       engine.decoder.Decode,
			NewSessionID: uuid.NewString,
		},
	}

	b.built = true
	return engine, nil
}
