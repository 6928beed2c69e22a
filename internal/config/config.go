// Package config loads the storeauth service configuration from an optional
// YAML file, an optional .env file and the process environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/MrEthical07/storeAuth/password"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment stage.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ParseEnvironment accepts dev, development, staging, prod and production in
// any case.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return Development, nil
	case "staging":
		return Staging, nil
	case "prod", "production":
		return Production, nil
	default:
		return "", fmt.Errorf("invalid ENVIRONMENT value: %s", s)
	}
}

type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	JWT         JWTConfig       `yaml:"jwt"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Argon2      Argon2Config    `yaml:"argon2"`
	Lockout     LockoutConfig   `yaml:"lockout"`
	Log         LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port               int      `yaml:"port"`
	BodyLimit          int64    `yaml:"body_limit"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	HTTPSRedirect      bool     `yaml:"https_redirect"`
	TrustProxy         bool     `yaml:"trust_proxy"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
}

type JWTConfig struct {
	UsersSecret              string `yaml:"users_secret"`
	UsersRefreshSecret       string `yaml:"users_refresh_secret"`
	AccessTokenExpiryMinutes int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiryDays   int    `yaml:"refresh_token_expiry_days"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type Argon2Config struct {
	MemoryCost  uint32 `yaml:"memory_cost"`
	TimeCost    uint32 `yaml:"time_cost"`
	Parallelism uint8  `yaml:"parallelism"`
}

type LockoutConfig struct {
	MaxFailedAttempts int `yaml:"max_failed_attempts"`
	DurationMinutes   int `yaml:"duration_minutes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the development defaults. DATABASE_URL and both JWT
// secrets have no default.
func Default() Config {
	pw := password.DefaultConfig()
	return Config{
		Environment: string(Development),
		Server: ServerConfig{
			Port:               8080,
			BodyLimit:          1 << 20,
			TimeoutSeconds:     30,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			TrustProxy:         true,
		},
		Redis: RedisConfig{
			URL:            "redis://localhost:6379/0",
			MaxConnections: 10,
		},
		JWT: JWTConfig{
			AccessTokenExpiryMinutes: 15,
			RefreshTokenExpiryDays:   7,
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 5},
		Argon2: Argon2Config{
			MemoryCost:  pw.Memory,
			TimeCost:    pw.Time,
			Parallelism: pw.Parallelism,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			DurationMinutes:   15,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load layers path (YAML) and envFile (dotenv) over [Default], then applies
// the process environment. Missing files are skipped.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
		if m != nil {
			dotenv = m
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}

	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) string) error {
	if v := lookup("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := lookup("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if err := overrideInt(lookup, "SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := overrideInt64(lookup, "SERVER_BODY_LIMIT", &cfg.Server.BodyLimit); err != nil {
		return err
	}
	if err := overrideInt(lookup, "SERVER_TIMEOUT", &cfg.Server.TimeoutSeconds); err != nil {
		return err
	}
	if v := lookup("SERVER_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORSAllowedOrigins = splitList(v)
	}
	if err := overrideBool(lookup, "HTTPS_REDIRECT", &cfg.Server.HTTPSRedirect); err != nil {
		return err
	}
	if err := overrideBool(lookup, "TRUST_PROXY", &cfg.Server.TrustProxy); err != nil {
		return err
	}

	if v := lookup("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := lookup("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if err := overrideInt(lookup, "REDIS_MAX_CONNECTIONS", &cfg.Redis.MaxConnections); err != nil {
		return err
	}

	if v := lookup("JWT_USERS_SECRET"); v != "" {
		cfg.JWT.UsersSecret = v
	}
	if v := lookup("JWT_USERS_REFRESH_SECRET"); v != "" {
		cfg.JWT.UsersRefreshSecret = v
	}
	if err := overrideInt(lookup, "JWT_ACCESS_TOKEN_EXPIRY_MINUTES", &cfg.JWT.AccessTokenExpiryMinutes); err != nil {
		return err
	}
	if err := overrideInt(lookup, "JWT_REFRESH_TOKEN_EXPIRY_DAYS", &cfg.JWT.RefreshTokenExpiryDays); err != nil {
		return err
	}

	if err := overrideInt(lookup, "RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.RateLimit.RequestsPerMinute); err != nil {
		return err
	}

	if v := lookup("ARGON2_MEMORY_COST"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("parse ARGON2_MEMORY_COST: %w", err)
		}
		cfg.Argon2.MemoryCost = uint32(n)
	}
	if v := lookup("ARGON2_TIME_COST"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("parse ARGON2_TIME_COST: %w", err)
		}
		cfg.Argon2.TimeCost = uint32(n)
	}
	if v := lookup("ARGON2_PARALLELISM"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("parse ARGON2_PARALLELISM: %w", err)
		}
		cfg.Argon2.Parallelism = uint8(n)
	}

	if err := overrideInt(lookup, "LOCKOUT_MAX_FAILED_ATTEMPTS", &cfg.Lockout.MaxFailedAttempts); err != nil {
		return err
	}
	if err := overrideInt(lookup, "LOCKOUT_DURATION_MINUTES", &cfg.Lockout.DurationMinutes); err != nil {
		return err
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func overrideInt(lookup func(string) string, key string, target *int) error {
	v := lookup(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", key, err)
	}
	*target = n
	return nil
}

func overrideInt64(lookup func(string) string, key string, target *int64) error {
	v := lookup(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", key, err)
	}
	*target = n
	return nil
}

func overrideBool(lookup func(string) string, key string, target *bool) error {
	v := lookup(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("parse %s bool: %w", key, err)
	}
	*target = b
	return nil
}

// Env returns the parsed environment, defaulting to Development when the
// value does not parse.
func (c *Config) Env() Environment {
	env, err := ParseEnvironment(c.Environment)
	if err != nil {
		return Development
	}
	return env
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env() == Production
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	env, err := ParseEnvironment(c.Environment)
	if err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("SERVER_PORT must be between 1 and 65535")
	}
	if c.Server.BodyLimit <= 0 {
		return errors.New("SERVER_BODY_LIMIT must be > 0")
	}
	if c.Server.TimeoutSeconds <= 0 {
		return errors.New("SERVER_TIMEOUT must be > 0")
	}
	for _, origin := range c.Server.CORSAllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS origin %q must start with http:// or https:// or be '*'", origin)
		}
		if origin == "*" && (env == Staging || env == Production) {
			return errors.New("CORS cannot allow wildcard (*) in production or staging")
		}
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("DATABASE_URL cannot be empty")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("REDIS_URL cannot be empty")
	}
	if c.Redis.MaxConnections <= 0 {
		return errors.New("REDIS_MAX_CONNECTIONS must be > 0")
	}

	if len(c.JWT.UsersSecret) < 32 {
		return errors.New("JWT_USERS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.UsersRefreshSecret) < 32 {
		return errors.New("JWT_USERS_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.UsersSecret == c.JWT.UsersRefreshSecret {
		return errors.New("JWT_USERS_SECRET and JWT_USERS_REFRESH_SECRET must differ")
	}
	if c.JWT.AccessTokenExpiryMinutes <= 0 {
		return errors.New("JWT_ACCESS_TOKEN_EXPIRY_MINUTES must be > 0")
	}
	if c.JWT.AccessTokenExpiryMinutes > 24*60 {
		return errors.New("JWT_ACCESS_TOKEN_EXPIRY_MINUTES must not exceed 24 hours")
	}
	if c.JWT.RefreshTokenExpiryDays <= 0 {
		return errors.New("JWT_REFRESH_TOKEN_EXPIRY_DAYS must be > 0")
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS_PER_MINUTE must be > 0")
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("LOCKOUT_MAX_FAILED_ATTEMPTS must be > 0")
	}
	if c.Lockout.DurationMinutes <= 0 {
		return errors.New("LOCKOUT_DURATION_MINUTES must be > 0")
	}

	return nil
}

// AuthConfig maps the service settings onto a [storeAuth.Config]. The
// result still goes through [storeAuth.Config.Validate] at build time.
func (c *Config) AuthConfig() storeAuth.Config {
	cfg := storeAuth.DefaultConfig()

	cfg.JWT.AccessTTL = time.Duration(c.JWT.AccessTokenExpiryMinutes) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(c.JWT.RefreshTokenExpiryDays) * 24 * time.Hour
	cfg.JWT.AccessKey = []byte(c.JWT.UsersSecret)
	cfg.JWT.RefreshKey = []byte(c.JWT.UsersRefreshSecret)

	cfg.Password.Memory = c.Argon2.MemoryCost
	cfg.Password.Time = c.Argon2.TimeCost
	cfg.Password.Parallelism = c.Argon2.Parallelism

	cfg.RateLimit.MaxRequests = c.RateLimit.RequestsPerMinute
	cfg.RateLimit.Window = time.Minute

	cfg.Lockout.MaxFailedAttempts = c.Lockout.MaxFailedAttempts
	cfg.Lockout.Duration = time.Duration(c.Lockout.DurationMinutes) * time.Minute
	if cfg.Lockout.Retention < cfg.Lockout.Duration {
		cfg.Lockout.Retention = cfg.Lockout.Duration
	}

	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Security.ProductionMode = c.IsProduction()

	return cfg
}
