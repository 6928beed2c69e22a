// Package limiters provides the login lockout tracker and the registration
// throttle.
//
// # Limiters
//
//   - [Lockout]: in-process failed-login counter per client identifier with a
//     time-boxed lock and a background sweep.
//   - [RegisterLimiter]: Redis fixed-window throttle for sign-ups, keyed per
//     email and per client identifier, shared by every instance.
//
// Both are nil-safe: methods on a nil receiver admit everything.
//
// # Architecture boundaries
//
// The limiters count. Flow functions and middleware decide the consequence
// (which error to surface, when to record an outcome).
//
// # What this package must NOT do
//
//   - Import storeAuth or any sibling internal package except internal/shard.
//   - Decide HTTP status codes or response shapes.
package limiters
