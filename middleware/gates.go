package middleware

import (
	"context"
	"net/http"

	storeAuth "github.com/MrEthical07/storeAuth"
)

// RateChecker is satisfied by [storeAuth.Engine].
type RateChecker interface {
	CheckRateLimit(ctx context.Context, clientID string) error
}

// LockoutChecker is satisfied by [storeAuth.Engine].
type LockoutChecker interface {
	CheckLockout(ctx context.Context, clientID string) error
}

// RateLimit charges one request to the caller's fixed window and answers 429
// once the budget is spent.
func RateLimit(limiter RateChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				WriteError(w, storeAuth.ErrEngineNotReady)
				return
			}
			clientID := storeAuth.ClientIPFromContext(r.Context())
			if err := limiter.CheckRateLimit(r.Context(), clientID); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Lockout rejects locked clients with 429. Failures are recorded by the
// login flow itself.
func Lockout(checker LockoutChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil {
				WriteError(w, storeAuth.ErrEngineNotReady)
				return
			}
			clientID := storeAuth.ClientIPFromContext(r.Context())
			if err := checker.CheckLockout(r.Context(), clientID); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
