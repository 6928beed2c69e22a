package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeAuth/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success        int
	Failure        int
	Locked         int
	SessionCreated int
	IndexPruned    int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success string
	Failure string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	RefreshTTL time.Duration
	Now        func() time.Time

	ClientIPFromContext func(context.Context) string
	CheckLockout        func(clientID string) error
	RecordFailure       func(ctx context.Context, clientID string)
	RecordSuccess       func(clientID string)

	GetUserByIdentifier func(context.Context, string) (UserRecord, error)
	VerifyPassword      func(plain, encoded string) (bool, error)
	DummyVerify         func(plain string)
	ResolveRoles        func(context.Context, string) ([]string, error)

	IssueAccess  func(userID string, roles []string) (string, time.Time, error)
	IssueRefresh func(userID string) (string, time.Time, error)
	HashToken    func(string) string
	PutSession   func(context.Context, *session.RefreshSession, time.Duration) error
	PruneIndex   func(context.Context, string) (int, error)

	Hooks   Hooks
	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

// RunLogin authenticates identifier/password and issues an access and
// refresh token pair. Unknown account, wrong password and disabled account
// all return InvalidCredentials. Every failure after the lockout gate is
// recorded against the client id; a success clears it.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (*LoginResult, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.RecordFailure == nil {
		deps.RecordFailure = func(context.Context, string) {}
	}
	if deps.RecordSuccess == nil {
		deps.RecordSuccess = func(string) {}
	}
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(string) {}
	}
	if deps.GetUserByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.ResolveRoles == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil ||
		deps.HashToken == nil ||
		deps.PutSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLockout != nil {
		if err := deps.CheckLockout(ip); err != nil {
			hooks.MetricInc(deps.Metrics.Locked)
			hooks.EmitAudit(ctx, deps.Events.Failure, false, "", err, func() map[string]string {
				return map[string]string{"reason": "locked", "ip": ip}
			})
			return nil, err
		}
	}

	fail := func(reason, userID string, err error) error {
		deps.RecordFailure(ctx, ip)
		hooks.MetricInc(deps.Metrics.Failure)
		hooks.EmitAudit(ctx, deps.Events.Failure, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason, "ip": ip}
		})
		return err
	}

	identifier = NormalizeEmail(identifier)
	if identifier == "" || password == "" {
		deps.DummyVerify(password)
		return nil, fail("empty_credentials", "", deps.Errors.InvalidCredentials)
	}

	user, err := deps.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			deps.DummyVerify(password)
			return nil, fail("user_not_found", "", deps.Errors.InvalidCredentials)
		}
		hooks.LogInternal(ctx, "login.lookup", "", err)
		return nil, fail("lookup_error", "", deps.Errors.Internal)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	password = ""
	if err != nil {
		hooks.LogInternal(ctx, "login.verify", user.UserID, err)
		return nil, fail("verify_error", user.UserID, deps.Errors.InvalidCredentials)
	}
	if !ok {
		return nil, fail("password_mismatch", user.UserID, deps.Errors.InvalidCredentials)
	}
	if user.Disabled {
		return nil, fail("account_disabled", user.UserID, deps.Errors.InvalidCredentials)
	}

	roles, err := deps.ResolveRoles(ctx, user.UserID)
	if err != nil {
		hooks.LogInternal(ctx, "login.roles", user.UserID, err)
		return nil, fail("roles_error", user.UserID, deps.Errors.Internal)
	}

	access, accessExp, err := deps.IssueAccess(user.UserID, roles)
	if err != nil {
		hooks.LogInternal(ctx, "login.issue_access", user.UserID, err)
		return nil, fail("issue_error", user.UserID, deps.Errors.Internal)
	}
	refresh, refreshExp, err := deps.IssueRefresh(user.UserID)
	if err != nil {
		hooks.LogInternal(ctx, "login.issue_refresh", user.UserID, err)
		return nil, fail("issue_error", user.UserID, deps.Errors.Internal)
	}

	now := deps.Now()
	sess := &session.RefreshSession{
		UserID:    user.UserID,
		TokenHash: deps.HashToken(refresh),
		CreatedAt: now.Unix(),
		ExpiresAt: refreshExp.Unix(),
	}
	if err := deps.PutSession(ctx, sess, deps.RefreshTTL); err != nil {
		hooks.LogInternal(ctx, "login.put_session", user.UserID, err)
		return nil, fail("session_error", user.UserID, deps.Errors.Internal)
	}
	hooks.MetricInc(deps.Metrics.SessionCreated)

	if deps.PruneIndex != nil {
		if removed, err := deps.PruneIndex(ctx, user.UserID); err != nil {
			hooks.Warn(ctx, "login.prune_index", user.UserID, err)
		} else if removed > 0 {
			hooks.MetricInc(deps.Metrics.IndexPruned)
		}
	}

	deps.RecordSuccess(ip)
	hooks.MetricInc(deps.Metrics.Success)
	hooks.EmitAudit(ctx, deps.Events.Success, true, user.UserID, nil, func() map[string]string {
		return map[string]string{"ip": ip}
	})

	return &LoginResult{
		UserID:           user.UserID,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
