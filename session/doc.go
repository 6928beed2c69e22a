// Package session provides refresh-session persistence for the authentication
// hot path.
//
// # Key layout
//
// A session lives under refresh_token:{tokenHash} as a JSON [RefreshSession]
// with a store-side TTL equal to the refresh token lifetime. The secondary
// index user_sessions:{userId} is a Redis set of token hashes with no TTL;
// stale members are removed by [Store.PruneIndex] or on individual revoke.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [MemoryStore] test
// double and the [RefreshSession] model. It does NOT verify tokens or decide
// whether a caller is authenticated; those responsibilities belong to the
// Engine.
//
// # What this package must NOT do
//
//   - Import storeAuth, jwt, or middleware (no upward imports).
//   - Persist raw refresh tokens. Only [HashToken] output is stored.
package session
