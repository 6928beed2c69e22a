package rate

import (
	"context"
	"time"

	"github.com/MrEthical07/storeAuth/internal/shard"
)

const (
	// DefaultMaxRequests is the auth endpoint budget per window.
	DefaultMaxRequests = 5
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute
	// DefaultCleanupInterval is how often idle windows are swept.
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultRetention is how long a window survives before the sweep evicts it.
	DefaultRetention = 5 * time.Minute
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	Shards          int
}

func (c Config) withDefaults() Config {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.CleanupInterval < 0 {
		c.CleanupInterval = 0
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	// An open window must outlive the sweep or its count resets early.
	if c.Retention < c.Window {
		c.Retention = c.Window
	}
	return c
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

type window struct {
	count       int
	windowStart time.Time
}

// Limiter enforces a per-client fixed-window request budget.
type Limiter struct {
	config  Config
	now     func() time.Time
	windows *shard.Map[window]
	sweeper *shard.Sweeper
}

// New creates a [Limiter]. A nil now uses time.Now.
func New(cfg Config, now func() time.Time) *Limiter {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	l := &Limiter{
		config:  cfg,
		now:     now,
		windows: shard.New[window](cfg.Shards),
	}
	l.sweeper = shard.NewSweeper(cfg.CleanupInterval, func() { l.Sweep() })
	return l
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow counts one request for clientID and reports whether it is admitted.
// A rejected request does not consume budget.
func (l *Limiter) Allow(clientID string) Decision {
	now := l.now()
	var d Decision

	l.windows.Update(clientID, func(w *window) *window {
		switch {
		case w == nil:
			w = &window{count: 1, windowStart: now}
			d = Decision{Allowed: true, Count: 1}
		case now.Sub(w.windowStart) >= l.config.Window:
			w.count = 1
			w.windowStart = now
			d = Decision{Allowed: true, Count: 1}
		case w.count >= l.config.MaxRequests:
			d = Decision{
				Allowed:    false,
				Count:      w.count,
				RetryAfter: l.config.Window - now.Sub(w.windowStart),
			}
		default:
			w.count++
			d = Decision{Allowed: true, Count: w.count}
		}
		return w
	})

	return d
}

// Sweep evicts windows older than the retention horizon and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	return l.windows.Sweep(func(_ string, w *window) bool {
		return now.Sub(w.windowStart) < l.config.Retention
	})
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	return l.windows.Len()
}

// Start launches the background sweep.
func (l *Limiter) Start(ctx context.Context) {
	l.sweeper.Start(ctx)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	if l == nil {
		return
	}
	l.sweeper.Close()
}
