// Package middleware adapts [storeAuth.Engine] to net/http. Every exported
// constructor returns a func(http.Handler) http.Handler so it composes with
// chi or any stdlib mux.
//
// # Chain
//
//   - [ClientID] resolves the caller's identifier and attaches it with
//     [storeAuth.WithClientIP]. It must run before the gates.
//   - [RateLimit] charges the fixed-window budget and answers 429.
//   - [Lockout] rejects locked clients with 429 before the login handler runs.
//   - [Guard] validates the bearer token and exposes the identity through
//     [IdentityFromContext].
//   - [SecurityHeaders] sets the static response headers.
//
// Errors are rendered with [WriteError], which owns the error-to-status table
// shared with the HTTP API.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Rate, lockout and
// token decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
//   - Echo backend error detail in responses.
package middleware
