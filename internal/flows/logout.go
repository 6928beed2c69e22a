package flows

import (
	"context"
	"strconv"
)

// LogoutMetrics carries metric IDs used by the logout flows.
type LogoutMetrics struct {
	Logout         int
	LogoutAll      int
	SessionRevoked int
}

// LogoutEvents carries audit event names used by the logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	RevokeSession    func(context.Context, string) error
	RevokeAllForUser func(context.Context, string) (int, error)

	Hooks   Hooks
	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  Errors
}

// RunLogout revokes the session identified by tokenHash. Unknown hashes are
// a no-op.
func RunLogout(ctx context.Context, tokenHash string, deps LogoutDeps) error {
	hooks := deps.Hooks.withDefaults()
	if deps.RevokeSession == nil {
		return deps.Errors.EngineNotReady
	}
	if tokenHash == "" {
		return deps.Errors.InvalidToken
	}

	if err := deps.RevokeSession(ctx, tokenHash); err != nil {
		hooks.LogInternal(ctx, "logout.revoke", "", err)
		hooks.EmitAudit(ctx, deps.Events.Logout, false, "", deps.Errors.Internal, nil)
		return deps.Errors.Internal
	}

	hooks.MetricInc(deps.Metrics.Logout)
	hooks.MetricInc(deps.Metrics.SessionRevoked)
	hooks.EmitAudit(ctx, deps.Events.Logout, true, "", nil, nil)
	return nil
}

// RunLogoutAll revokes every session of userID and returns how many were
// live.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.RevokeAllForUser == nil {
		return 0, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return 0, deps.Errors.InvalidRequest
	}

	n, err := deps.RevokeAllForUser(ctx, userID)
	if err != nil {
		hooks.LogInternal(ctx, "logout_all.revoke", userID, err)
		hooks.EmitAudit(ctx, deps.Events.LogoutAll, false, userID, deps.Errors.Internal, nil)
		return 0, deps.Errors.Internal
	}

	hooks.MetricInc(deps.Metrics.LogoutAll)
	hooks.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return n, nil
}
