package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRegisterRateLimited is returned when a sign-up key is over budget.
	ErrRegisterRateLimited = errors.New("registration rate limited")
	// ErrRegisterRedisUnavailable wraps Redis transport failures.
	ErrRegisterRedisUnavailable = errors.New("registration limiter redis unavailable")
)

// RegisterConfig holds the sign-up throttle policy.
type RegisterConfig struct {
	EnableIdentifierThrottle bool
	EnableClientThrottle     bool
	MaxAttempts              int
	Cooldown                 time.Duration
}

// RegisterLimiter is a Redis fixed-window counter for sign-ups.
type RegisterLimiter struct {
	redis  redis.UniversalClient
	config RegisterConfig
}

// RegisterLimitError carries the remaining cooldown of the key that tripped.
type RegisterLimitError struct {
	RetryAfter time.Duration
}

func (e *RegisterLimitError) Error() string {
	return ErrRegisterRateLimited.Error()
}

func (e *RegisterLimitError) Unwrap() error {
	return ErrRegisterRateLimited
}

// NewRegisterLimiter creates a [RegisterLimiter]. A nil client yields a nil
// limiter, which admits everything.
func NewRegisterLimiter(redisClient redis.UniversalClient, cfg RegisterConfig) *RegisterLimiter {
	if redisClient == nil || cfg.MaxAttempts <= 0 || cfg.Cooldown <= 0 {
		return nil
	}
	return &RegisterLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enforce counts one sign-up attempt for the email and the client id.
func (l *RegisterLimiter) Enforce(ctx context.Context, email, clientID string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle && email != "" {
		if err := l.enforceKey(ctx, registerIdentifierKey(email)); err != nil {
			return err
		}
	}

	if l.config.EnableClientThrottle && clientID != "" {
		if err := l.enforceKey(ctx, registerClientKey(clientID)); err != nil {
			return err
		}
	}

	return nil
}

func (l *RegisterLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegisterRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRegisterRedisUnavailable, err)
		}
	}

	if count <= int64(l.config.MaxAttempts) {
		return nil
	}

	retryAfter, err := l.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegisterRedisUnavailable, err)
	}
	if retryAfter <= 0 {
		retryAfter = l.config.Cooldown
	}
	return &RegisterLimitError{RetryAfter: retryAfter}
}

func registerIdentifierKey(email string) string {
	return "rlr:email:" + strings.ToLower(strings.TrimSpace(email))
}

func registerClientKey(clientID string) string {
	return "rlr:client:" + clientID
}
