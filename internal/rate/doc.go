// Package rate provides the in-process fixed-window request limiter that
// guards the authentication endpoints.
//
// # Window semantics
//
// Each client identifier owns one window {count, windowStart}. The first
// request opens the window; requests are admitted while count < MaxRequests;
// once now - windowStart >= Window the next request opens a fresh window.
// A fixed window admits up to 2×MaxRequests across a window boundary. That is
// accepted for abuse dampening; this is not a token bucket.
//
// # Eviction
//
// A sweep evicts windows opened more than Retention ago. Retention is
// independent of Window so a burst of one-off clients cannot grow the map
// without bound.
//
// # What this package must NOT do
//
//   - Share state across processes. Each instance counts only its own traffic.
//   - Be imported outside the storeAuth module.
package rate
