package storeAuth

import (
	"bytes"
	"errors"
	"time"

	"github.com/MrEthical07/storeAuth/internal/limiters"
	"github.com/MrEthical07/storeAuth/internal/rate"
	"github.com/MrEthical07/storeAuth/jwt"
	"github.com/MrEthical07/storeAuth/password"
)

// MaxAccessTTL caps the access token lifetime.
const MaxAccessTTL = 24 * time.Hour

// Config is the full engine configuration. Start from [DefaultConfig] and
// override fields; the Builder validates it at Build.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	Register  RegisterConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the token codec settings. For "hs256" AccessKey and
// RefreshKey are shared secrets; for "ed25519" they are private keys.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	AccessKey     []byte
	RefreshKey    []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the refresh session store.
type SessionConfig struct {
	// RedisPrefix is prepended to every session key. Empty keeps the bare
	// refresh_token: and user_sessions: layout.
	RedisPrefix string
	// PruneOnLogin drops stale index entries after each successful login.
	PruneOnLogin bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the password length policy.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

/*
====================================
RATE LIMIT / LOCKOUT CONFIG
====================================
*/

// RateLimitConfig is the fixed-window request budget per client.
type RateLimitConfig struct {
	Enabled         bool
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
}

// LockoutConfig is the login lockout policy per client.
type LockoutConfig struct {
	Enabled           bool
	MaxFailedAttempts int
	Duration          time.Duration
	CleanupInterval   time.Duration
	Retention         time.Duration
}

// RegisterConfig throttles sign-ups in Redis. It is inactive when the
// engine has no Redis client.
type RegisterConfig struct {
	EnableIdentifierThrottle bool
	EnableClientThrottle     bool
	MaxAttempts              int
	Cooldown                 time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds deployment-level hardening switches.
type SecurityConfig struct {
	// ProductionMode tightens Validate: shorter access tokens and stronger
	// Argon2 floors.
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Signing keys are empty
// and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
			Leeway:        60 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:  "",
			PruneOnLogin: true,
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MinPasswordBytes: pw.MinPasswordBytes,
			MaxPasswordBytes: pw.MaxPasswordBytes,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			MaxRequests:     rate.DefaultMaxRequests,
			Window:          rate.DefaultWindow,
			CleanupInterval: rate.DefaultCleanupInterval,
			Retention:       rate.DefaultRetention,
		},
		Lockout: LockoutConfig{
			Enabled:           true,
			MaxFailedAttempts: limiters.DefaultMaxFailedAttempts,
			Duration:          limiters.DefaultLockoutDuration,
			CleanupInterval:   limiters.DefaultLockoutCleanupInterval,
			Retention:         limiters.DefaultLockoutRetention,
		},
		Register: RegisterConfig{
			EnableIdentifierThrottle: true,
			EnableClientThrottle:     true,
			MaxAttempts:              5,
			Cooldown:                 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessKey = cloneBytes(cfg.JWT.AccessKey)
	out.JWT.RefreshKey = cloneBytes(cfg.JWT.RefreshKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MinPasswordBytes: c.Password.MinPasswordBytes,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.AccessTTL > MaxAccessTTL {
		return errors.New("JWT AccessTTL must be <= 24h")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > jwt.MaxLeeway {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256, "":
		if len(c.JWT.AccessKey) < jwt.MinHMACKeyLength {
			return errors.New("hs256 AccessKey must be >= 32 bytes")
		}
		if len(c.JWT.RefreshKey) < jwt.MinHMACKeyLength {
			return errors.New("hs256 RefreshKey must be >= 32 bytes")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.AccessKey) == 0 {
			return errors.New("ed25519 requires AccessKey")
		}
		if len(c.JWT.RefreshKey) == 0 {
			return errors.New("ed25519 requires RefreshKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if bytes.Equal(c.JWT.AccessKey, c.JWT.RefreshKey) {
		return errors.New("JWT AccessKey and RefreshKey must differ")
	}

	// Password
	if err := password.ValidateConfig(c.passwordConfig()); err != nil {
		return err
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("RateLimit MaxRequests must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if c.RateLimit.CleanupInterval < 0 {
			return errors.New("RateLimit CleanupInterval must be >= 0")
		}
		if c.RateLimit.Retention > 0 && c.RateLimit.Retention < c.RateLimit.Window {
			return errors.New("RateLimit Retention must be >= Window")
		}
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.MaxFailedAttempts <= 0 {
			return errors.New("Lockout MaxFailedAttempts must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
		if c.Lockout.CleanupInterval < 0 {
			return errors.New("Lockout CleanupInterval must be >= 0")
		}
		if c.Lockout.Retention > 0 && c.Lockout.Retention < c.Lockout.Duration {
			return errors.New("Lockout Retention must be >= Duration")
		}
	}

	// Register
	if c.Register.EnableIdentifierThrottle || c.Register.EnableClientThrottle {
		if c.Register.MaxAttempts <= 0 {
			return errors.New("Register MaxAttempts must be > 0")
		}
		if c.Register.Cooldown <= 0 {
			return errors.New("Register Cooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.Password.Memory < 65536 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if !c.RateLimit.Enabled {
			return errors.New("ProductionMode requires RateLimit Enabled")
		}
		if !c.Lockout.Enabled {
			return errors.New("ProductionMode requires Lockout Enabled")
		}
	}

	return nil
}
