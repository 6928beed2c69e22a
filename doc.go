// Package storeAuth is the authentication and session-security core of a
// retail backend: stateless access tokens, revocable refresh sessions in
// Redis, a fixed-window rate limiter and a login lockout tracker, composed
// behind [Engine].
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// storeAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and value types ([TokenPair], [Identity], ...). Flow
// orchestration, rate limiting, lockout accounting and audit dispatch live
// under internal/. Users and roles come from a caller-supplied
// [UserProvider].
//
// # What this package must NOT do
//
//   - Expose Redis clients or store internals in its public API.
//   - Reveal whether a failed login hit an unknown email, a wrong password or
//     a disabled account.
//   - Surface backend error detail to callers; it is logged and mapped to
//     [ErrInternal].
//   - Import any sub-package that re-imports storeAuth.
//
// # Performance contract
//
// Token verification never touches Redis. Validate costs one directory
// lookup plus one role resolution; Refresh adds one session read; Login adds
// one Argon2id verification and one session write.
package storeAuth
