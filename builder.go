package storeAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeAuth/internal/audit"
	"github.com/MrEthical07/storeAuth/internal/limiters"
	internalmetrics "github.com/MrEthical07/storeAuth/internal/metrics"
	"github.com/MrEthical07/storeAuth/internal/rate"
	"github.com/MrEthical07/storeAuth/jwt"
	"github.com/MrEthical07/storeAuth/password"
	"github.com/MrEthical07/storeAuth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	sessions     SessionStore
	userProvider UserProvider
	hasher       PasswordHasher
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session store and the
// registration throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the session store, e.g. with
// [session.MemoryStore] in tests.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithUserProvider sets the user and role directory. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordHasher overrides the default Argon2id hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets the audit sink. Events flow only when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for internal failures. Defaults to a no-op
// logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source shared by tokens, limiters and sessions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component and starts the
// limiter and lockout sweeps. Call [Engine.Close] to stop them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	sessions := b.sessions
	if sessions == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		AccessKey:     cloneBytes(cfg.JWT.AccessKey),
		RefreshKey:    cloneBytes(cfg.JWT.RefreshKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher := b.hasher
	var dummyVerify func(string)
	if hasher == nil {
		argon, err := password.NewArgon2(cfg.passwordConfig())
		if err != nil {
			return nil, err
		}
		hasher = argon
		dummyVerify = argon.DummyVerify
	} else if dv, ok := hasher.(interface{ DummyVerify(string) }); ok {
		dummyVerify = dv.DummyVerify
	} else {
		dummyHash, err := hasher.Hash("storeauth-dummy-password")
		if err != nil {
			return nil, err
		}
		dummyVerify = func(plain string) {
			_, _ = hasher.Verify(plain, dummyHash)
		}
	}

	engine := &Engine{
		config:       cfg,
		now:          now,
		logger:       logger.Named("storeauth"),
		jwtManager:   jm,
		sessionStore: sessions,
		userProvider: b.userProvider,
		passwordHash: hasher,
		dummyVerify:  dummyVerify,
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
	}

	// -------- LIMITERS --------
	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(rate.Config{
			MaxRequests:     cfg.RateLimit.MaxRequests,
			Window:          cfg.RateLimit.Window,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			Retention:       cfg.RateLimit.Retention,
		}, now)
	}
	if cfg.Lockout.Enabled {
		engine.lockout = limiters.NewLockout(limiters.LockoutConfig{
			MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
			LockoutDuration:   cfg.Lockout.Duration,
			CleanupInterval:   cfg.Lockout.CleanupInterval,
			Retention:         cfg.Lockout.Retention,
		}, now)
	}
	engine.registerLimiter = limiters.NewRegisterLimiter(b.redis, limiters.RegisterConfig{
		EnableIdentifierThrottle: cfg.Register.EnableIdentifierThrottle,
		EnableClientThrottle:     cfg.Register.EnableClientThrottle,
		MaxAttempts:              cfg.Register.MaxAttempts,
		Cooldown:                 cfg.Register.Cooldown,
	})

	// -------- AUDIT --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, now)

	engine.initFlows()

	sweepCtx, cancel := context.WithCancel(context.Background())
	engine.stopSweeps = cancel
	if engine.rateLimiter != nil {
		engine.rateLimiter.Start(sweepCtx)
	}
	if engine.lockout != nil {
		engine.lockout.Start(sweepCtx)
	}

	b.built = true

	return engine, nil
}
