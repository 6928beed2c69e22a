package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/storeAuth/internal/shard"
)

const (
	// DefaultMaxFailedAttempts locks a client on its fifth consecutive failure.
	DefaultMaxFailedAttempts = 5
	// DefaultLockoutDuration is how long a locked client stays locked.
	DefaultLockoutDuration = 15 * time.Minute
	// DefaultLockoutCleanupInterval is how often stale entries are swept.
	DefaultLockoutCleanupInterval = 5 * time.Minute
	// DefaultLockoutRetention evicts entries untouched for this long.
	DefaultLockoutRetention = time.Hour
)

// LockoutConfig holds configuration for the login lockout tracker.
type LockoutConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	CleanupInterval   time.Duration
	Retention         time.Duration
	Shards            int
}

func (c LockoutConfig) withDefaults() LockoutConfig {
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if c.CleanupInterval < 0 {
		c.CleanupInterval = 0
	}
	if c.Retention <= 0 {
		c.Retention = DefaultLockoutRetention
	}
	return c
}

type lockoutEntry struct {
	failedAttempts int
	lockedUntil    time.Time
	lastAttempt    time.Time
}

func (e *lockoutEntry) clearIfExpired(now time.Time) {
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		e.failedAttempts = 0
		e.lockedUntil = time.Time{}
	}
}

// Lockout tracks failed login attempts per client identifier. Reaching
// MaxFailedAttempts locks the client for LockoutDuration.
type Lockout struct {
	config  LockoutConfig
	now     func() time.Time
	entries *shard.Map[lockoutEntry]
	sweeper *shard.Sweeper
}

// NewLockout creates a [Lockout]. A nil now uses time.Now.
func NewLockout(cfg LockoutConfig, now func() time.Time) *Lockout {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	l := &Lockout{
		config:  cfg,
		now:     now,
		entries: shard.New[lockoutEntry](cfg.Shards),
	}
	l.sweeper = shard.NewSweeper(cfg.CleanupInterval, func() { l.Sweep() })
	return l
}

// Config returns the effective configuration.
func (l *Lockout) Config() LockoutConfig {
	return l.config
}

// Check reports whether clientID is currently locked and, if so, how long
// until the lock lifts. An expired lock is cleared here.
func (l *Lockout) Check(clientID string) (time.Duration, bool) {
	if l == nil {
		return 0, false
	}
	now := l.now()
	var (
		retryAfter time.Duration
		locked     bool
	)

	l.entries.Update(clientID, func(e *lockoutEntry) *lockoutEntry {
		if e == nil {
			return &lockoutEntry{lastAttempt: now}
		}
		if !e.lockedUntil.IsZero() && now.Before(e.lockedUntil) {
			retryAfter = e.lockedUntil.Sub(now)
			locked = true
			return e
		}
		e.clearIfExpired(now)
		return e
	})

	return retryAfter, locked
}

// RecordFailure counts one failed attempt. It returns the lock expiry and
// true when this failure reached the threshold.
func (l *Lockout) RecordFailure(clientID string) (time.Time, bool) {
	if l == nil {
		return time.Time{}, false
	}
	now := l.now()
	var (
		lockedUntil time.Time
		locked      bool
	)

	l.entries.Update(clientID, func(e *lockoutEntry) *lockoutEntry {
		if e == nil {
			e = &lockoutEntry{}
		}
		e.clearIfExpired(now)
		e.failedAttempts++
		e.lastAttempt = now
		if e.failedAttempts >= l.config.MaxFailedAttempts {
			e.lockedUntil = now.Add(l.config.LockoutDuration)
			lockedUntil = e.lockedUntil
			locked = true
		}
		return e
	})

	return lockedUntil, locked
}

// RecordSuccess resets the client's counter and clears any lock.
func (l *Lockout) RecordSuccess(clientID string) {
	if l == nil {
		return
	}
	now := l.now()
	l.entries.Update(clientID, func(e *lockoutEntry) *lockoutEntry {
		if e == nil {
			return nil
		}
		e.failedAttempts = 0
		e.lockedUntil = time.Time{}
		e.lastAttempt = now
		return e
	})
}

// FailedAttempts returns the current failure count for clientID.
func (l *Lockout) FailedAttempts(clientID string) int {
	if l == nil {
		return 0
	}
	n := 0
	l.entries.Update(clientID, func(e *lockoutEntry) *lockoutEntry {
		if e != nil {
			n = e.failedAttempts
		}
		return e
	})
	return n
}

// Sweep clears expired locks in place and evicts entries untouched for longer
// than the retention horizon. It returns the number of evicted entries.
func (l *Lockout) Sweep() int {
	if l == nil {
		return 0
	}
	now := l.now()
	return l.entries.Sweep(func(_ string, e *lockoutEntry) bool {
		e.clearIfExpired(now)
		if !e.lockedUntil.IsZero() {
			return true
		}
		return now.Sub(e.lastAttempt) < l.config.Retention
	})
}

// Len returns the number of tracked clients.
func (l *Lockout) Len() int {
	if l == nil {
		return 0
	}
	return l.entries.Len()
}

// Start launches the background sweep.
func (l *Lockout) Start(ctx context.Context) {
	if l == nil {
		return
	}
	l.sweeper.Start(ctx)
}

// Close stops the background sweep.
func (l *Lockout) Close() {
	if l == nil {
		return
	}
	l.sweeper.Close()
}
