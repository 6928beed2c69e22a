package flows

import (
	"context"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
}

// UserRecord is the flow-local user model.
type UserRecord struct {
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Disabled     bool
}

// Errors carries host-level sentinel errors so flows can return them without
// importing the root package.
type Errors struct {
	EngineNotReady     error
	InvalidCredentials error
	InvalidToken       error
	InvalidRequest     error
	UserNotFound       error
	AccountExists      error
	RateLimited        error
	AccountLocked      error
	Internal           error
}

// Hooks are the observability callbacks shared by every flow. Nil hooks are
// replaced with no-ops.
type Hooks struct {
	MetricInc   func(int)
	EmitAudit   func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)
	LogInternal func(ctx context.Context, op, userID string, err error)
	Warn        func(ctx context.Context, op, userID string, err error)
}

func (h Hooks) withDefaults() Hooks {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.LogInternal == nil {
		h.LogInternal = func(context.Context, string, string, error) {}
	}
	if h.Warn == nil {
		h.Warn = func(context.Context, string, string, error) {}
	}
	return h
}
