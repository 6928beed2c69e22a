package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeAuth/session"
)

// RefreshResult carries the newly minted access token.
type RefreshResult struct {
	UserID          string
	AccessToken     string
	AccessExpiresAt time.Time
}

// RefreshMetrics carries metric IDs used by the refresh flow.
type RefreshMetrics struct {
	Success int
	Failure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	Success string
	Failure string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Now func() time.Time

	VerifyRefresh func(string) (string, error)
	HashToken     func(string) string
	GetSession    func(context.Context, string) (*session.RefreshSession, error)
	GetUserByID   func(context.Context, string) (UserRecord, error)
	ResolveRoles  func(context.Context, string) ([]string, error)
	IssueAccess   func(userID string, roles []string) (string, time.Time, error)

	Hooks   Hooks
	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  Errors
}

// RunRefresh exchanges a refresh token for a new access token. The session
// store is authoritative: a cryptographically valid token with no live
// session is InvalidToken. Roles are resolved again so changes since login
// take effect. The refresh token is not rotated.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (*RefreshResult, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.VerifyRefresh == nil ||
		deps.HashToken == nil ||
		deps.GetSession == nil ||
		deps.GetUserByID == nil ||
		deps.ResolveRoles == nil ||
		deps.IssueAccess == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(reason, userID string, err error) error {
		hooks.MetricInc(deps.Metrics.Failure)
		hooks.EmitAudit(ctx, deps.Events.Failure, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	userID, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fail("token_invalid", "", deps.Errors.InvalidToken)
	}

	sess, err := deps.GetSession(ctx, deps.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fail("session_missing", userID, deps.Errors.InvalidToken)
		}
		if errors.Is(err, session.ErrCorrupt) {
			hooks.Warn(ctx, "refresh.get_session", userID, err)
			return nil, fail("session_corrupt", userID, deps.Errors.InvalidToken)
		}
		hooks.LogInternal(ctx, "refresh.get_session", userID, err)
		return nil, fail("store_error", userID, deps.Errors.Internal)
	}
	if sess.UserID != userID || sess.IsExpired(deps.Now()) {
		return nil, fail("session_mismatch", userID, deps.Errors.InvalidToken)
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			return nil, fail("user_not_found", userID, deps.Errors.UserNotFound)
		}
		hooks.LogInternal(ctx, "refresh.lookup", userID, err)
		return nil, fail("lookup_error", userID, deps.Errors.Internal)
	}
	if user.Disabled {
		return nil, fail("account_disabled", userID, deps.Errors.UserNotFound)
	}

	roles, err := deps.ResolveRoles(ctx, userID)
	if err != nil {
		hooks.LogInternal(ctx, "refresh.roles", userID, err)
		return nil, fail("roles_error", userID, deps.Errors.Internal)
	}

	access, exp, err := deps.IssueAccess(userID, roles)
	if err != nil {
		hooks.LogInternal(ctx, "refresh.issue_access", userID, err)
		return nil, fail("issue_error", userID, deps.Errors.Internal)
	}

	hooks.MetricInc(deps.Metrics.Success)
	hooks.EmitAudit(ctx, deps.Events.Success, true, userID, nil, nil)

	return &RefreshResult{
		UserID:          userID,
		AccessToken:     access,
		AccessExpiresAt: exp,
	}, nil
}
