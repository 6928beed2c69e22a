package storeAuth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown account, a
	// wrong password or a disabled account alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired, mis-signed and revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrAccountLocked is returned while a client is locked out of login.
	ErrAccountLocked = errors.New("account locked")
	// ErrUserNotFound is returned by Refresh and Validate when the token
	// subject no longer resolves to an active user.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by Register for a taken email.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInternal masks store, provider and signing failures.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RetryError decorates ErrRateLimited and ErrAccountLocked with the time the
// caller should wait before trying again.
type RetryError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryError) Error() string {
	return e.Err.Error() + ": retry after " + e.RetryAfter.Round(time.Second).String()
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// RetryAfter extracts the wait duration from err, or 0 when err carries none.
func RetryAfter(err error) time.Duration {
	var re *RetryError
	if errors.As(err, &re) {
		return re.RetryAfter
	}
	return 0
}
