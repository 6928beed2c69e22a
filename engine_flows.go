package storeAuth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/storeAuth/internal/audit"
	internalflows "github.com/MrEthical07/storeAuth/internal/flows"
	"github.com/MrEthical07/storeAuth/internal/limiters"
	"github.com/MrEthical07/storeAuth/session"
)

func (e *Engine) initFlows() {
	e.flows = internalflows.New(internalflows.Deps{
		Register: e.registerFlowDeps(),
		Login:    e.loginFlowDeps(),
		Refresh:  e.refreshFlowDeps(),
		Validate: e.validateFlowDeps(),
		Logout:   e.logoutFlowDeps(),
	})
}

func (e *Engine) flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:     ErrEngineNotReady,
		InvalidCredentials: ErrInvalidCredentials,
		InvalidToken:       ErrInvalidToken,
		InvalidRequest:     ErrInvalidRequest,
		UserNotFound:       ErrUserNotFound,
		AccountExists:      ErrAccountExists,
		RateLimited:        ErrRateLimited,
		AccountLocked:      ErrAccountLocked,
		Internal:           ErrInternal,
	}
}

func (e *Engine) flowHooks() internalflows.Hooks {
	return internalflows.Hooks{
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit:   e.emitAudit,
		LogInternal: e.logInternal,
		Warn:        e.logWarn,
	}
}

func toFlowUser(u UserRecord) internalflows.UserRecord {
	return internalflows.UserRecord{
		UserID:       u.UserID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Disabled:     u.Status != AccountActive,
	}
}

func (e *Engine) getUserByIdentifier(ctx context.Context, identifier string) (internalflows.UserRecord, error) {
	u, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return internalflows.UserRecord{}, err
	}
	return toFlowUser(u), nil
}

func (e *Engine) getUserByID(ctx context.Context, userID string) (internalflows.UserRecord, error) {
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return internalflows.UserRecord{}, err
	}
	return toFlowUser(u), nil
}

func (e *Engine) enforceRegisterLimit(ctx context.Context, email, clientID string) error {
	err := e.registerLimiter.Enforce(ctx, email, clientID)
	if err == nil {
		return nil
	}
	var limitErr *limiters.RegisterLimitError
	if errors.As(err, &limitErr) {
		return &RetryError{Err: ErrRateLimited, RetryAfter: limitErr.RetryAfter}
	}
	return fmt.Errorf("register limiter: %w", err)
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		MinPasswordBytes:    e.config.Password.MinPasswordBytes,
		MaxPasswordBytes:    e.config.Password.MaxPasswordBytes,
		ClientIPFromContext: clientIPFromContext,
		EnforceLimit:        e.enforceRegisterLimit,
		GetUserByIdentifier: e.getUserByIdentifier,
		HashPassword:        e.passwordHash.Hash,
		CreateUser: func(ctx context.Context, in internalflows.RegisterInput) (internalflows.UserRecord, error) {
			u, err := e.userProvider.CreateUser(ctx, CreateUserInput{
				Email:        in.Email,
				FirstName:    in.FirstName,
				LastName:     in.LastName,
				PasswordHash: in.PasswordHash,
			})
			if err != nil {
				return internalflows.UserRecord{}, err
			}
			return toFlowUser(u), nil
		},
		Hooks: e.flowHooks(),
		Metrics: internalflows.RegisterMetrics{
			Success:     int(MetricRegisterSuccess),
			Duplicate:   int(MetricRegisterDuplicate),
			RateLimited: int(MetricRegisterRateLimited),
		},
		Event:  audit.EventRegister,
		Errors: e.flowErrors(),
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		RefreshTTL:          e.config.JWT.RefreshTTL,
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		RecordFailure:       e.recordLoginFailure,
		RecordSuccess:       e.lockout.RecordSuccess,
		GetUserByIdentifier: e.getUserByIdentifier,
		VerifyPassword:      e.passwordHash.Verify,
		DummyVerify:         e.dummyVerify,
		ResolveRoles:        e.userProvider.ResolveRoles,
		IssueAccess:         e.jwtManager.IssueAccess,
		IssueRefresh:        e.jwtManager.IssueRefresh,
		HashToken:           session.HashToken,
		PutSession:          e.sessionStore.Put,
		Hooks:               e.flowHooks(),
		Metrics: internalflows.LoginMetrics{
			Success:        int(MetricLoginSuccess),
			Failure:        int(MetricLoginFailure),
			Locked:         int(MetricLoginLocked),
			SessionCreated: int(MetricSessionCreated),
			IndexPruned:    int(MetricSessionIndexPruned),
		},
		Events: internalflows.LoginEvents{
			Success: audit.EventLoginSuccess,
			Failure: audit.EventLoginFailure,
		},
		Errors: e.flowErrors(),
	}
	if e.lockout != nil {
		deps.CheckLockout = e.checkLockout
	}
	if e.config.Session.PruneOnLogin {
		deps.PruneIndex = e.sessionStore.PruneIndex
	}
	return deps
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		Now:           e.now,
		VerifyRefresh: e.jwtManager.VerifyRefresh,
		HashToken:     session.HashToken,
		GetSession:    e.sessionStore.Get,
		GetUserByID:   e.getUserByID,
		ResolveRoles:  e.userProvider.ResolveRoles,
		IssueAccess:   e.jwtManager.IssueAccess,
		Hooks:         e.flowHooks(),
		Metrics: internalflows.RefreshMetrics{
			Success: int(MetricRefreshSuccess),
			Failure: int(MetricRefreshFailure),
		},
		Events: internalflows.RefreshEvents{
			Success: audit.EventRefreshSuccess,
			Failure: audit.EventRefreshFailure,
		},
		Errors: e.flowErrors(),
	}
}

func (e *Engine) validateFlowDeps() internalflows.ValidateDeps {
	deps := internalflows.ValidateDeps{
		Now:          e.now,
		VerifyAccess: e.jwtManager.VerifyAccess,
		GetUserByID:  e.getUserByID,
		ResolveRoles: e.userProvider.ResolveRoles,
		Hooks:        e.flowHooks(),
		Metrics: internalflows.ValidateMetrics{
			Success: int(MetricValidateSuccess),
			Failure: int(MetricValidateFailure),
			Latency: int(MetricValidateLatency),
		},
		Errors: e.flowErrors(),
	}
	if e.metrics.LatencyEnabled() {
		deps.ObserveLatency = func(id int, d time.Duration) {
			e.metrics.Observe(MetricID(id), d)
		}
	}
	return deps
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		RevokeSession:    e.sessionStore.Revoke,
		RevokeAllForUser: e.sessionStore.RevokeAllForUser,
		Hooks:            e.flowHooks(),
		Metrics: internalflows.LogoutMetrics{
			Logout:         int(MetricLogout),
			LogoutAll:      int(MetricLogoutAll),
			SessionRevoked: int(MetricSessionRevoked),
		},
		Events: internalflows.LogoutEvents{
			Logout:    audit.EventLogout,
			LogoutAll: audit.EventLogoutAll,
		},
		Errors: e.flowErrors(),
	}
}
