package storeAuth

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/storeAuth/internal/audit"
	internalflows "github.com/MrEthical07/storeAuth/internal/flows"
	"github.com/MrEthical07/storeAuth/internal/limiters"
	internalmetrics "github.com/MrEthical07/storeAuth/internal/metrics"
	"github.com/MrEthical07/storeAuth/internal/rate"
	"github.com/MrEthical07/storeAuth/jwt"
	"github.com/MrEthical07/storeAuth/session"
	"go.uber.org/zap"
)

// Engine is the authentication orchestrator. It is safe for concurrent use
// once built.
type Engine struct {
	config Config
	now    func() time.Time
	logger *zap.Logger

	jwtManager      *jwt.Manager
	sessionStore    SessionStore
	userProvider    UserProvider
	passwordHash    PasswordHasher
	dummyVerify     func(string)
	rateLimiter     *rate.Limiter
	lockout         *limiters.Lockout
	registerLimiter *limiters.RegisterLimiter
	audit           *audit.Dispatcher
	metrics         *internalmetrics.Metrics

	flows internalflows.Service

	stopSweeps context.CancelFunc
	closeOnce  sync.Once
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Close stops the background sweeps and drains the audit dispatcher. It is
// idempotent and waits for the goroutines to exit.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.stopSweeps != nil {
			e.stopSweeps()
		}
		e.rateLimiter.Close()
		e.lockout.Close()
		e.audit.Close()
	})
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// AccessTTL returns the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.RefreshTTL
}

// Register creates an account. It issues no tokens.
//
// Errors: [ErrInvalidRequest], [ErrAccountExists], [ErrRateLimited] (as a
// [*RetryError]) and [ErrInternal].
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	user, err := e.flows.Register(ctx, internalflows.RegisterInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		UserID:    user.UserID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// Login authenticates email and password and issues a token pair. The
// client identifier attached with [WithClientIP] is charged for failures.
//
// Errors: [ErrInvalidCredentials], [ErrAccountLocked] (as a [*RetryError])
// and [ErrInternal].
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		UserID:           res.UserID,
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The session
// store is authoritative: a revoked token fails with [ErrInvalidToken] even
// though its signature still verifies.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		UserID:          res.UserID,
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExpiresAt,
	}, nil
}

// Validate verifies an access token and returns the subject's current
// identity and roles.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*Identity, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	id, err := e.flows.Validate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:    id.UserID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Roles:     id.Roles,
	}, nil
}

// Logout revokes the session identified by the hash of its refresh token.
// Unknown hashes are a no-op.
func (e *Engine) Logout(ctx context.Context, tokenHash string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.Logout(ctx, tokenHash)
}

// LogoutToken hashes refreshToken and revokes its session.
func (e *Engine) LogoutToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrInvalidToken
	}
	return e.Logout(ctx, session.HashToken(refreshToken))
}

// LogoutAll revokes every session of userID and returns how many were live.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.flows.LogoutAll(ctx, userID)
}

// ActiveSessions lists the session hashes indexed for userID, including
// stale entries not yet pruned.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	hashes, err := e.sessionStore.ActiveSessions(ctx, userID)
	if err != nil {
		e.logInternal(ctx, "active_sessions", userID, err)
		return nil, ErrInternal
	}
	return hashes, nil
}

// Ping checks the session backend.
func (e *Engine) Ping(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.sessionStore.Ping(ctx)
}

// CheckRateLimit counts one request for clientID against the fixed-window
// budget. Over budget it returns a [*RetryError] wrapping [ErrRateLimited].
func (e *Engine) CheckRateLimit(ctx context.Context, clientID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.rateLimiter == nil {
		return nil
	}
	if clientID == "" {
		clientID = UnknownClient
	}

	d := e.rateLimiter.Allow(clientID)
	if d.Allowed {
		return nil
	}

	err := &RetryError{Err: ErrRateLimited, RetryAfter: d.RetryAfter}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(WithClientIP(ctx, clientID), audit.EventRateLimited, false, "", err, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(d.Count)}
	})
	return err
}

// CheckLockout reports whether clientID is locked out of login. A locked
// client gets a [*RetryError] wrapping [ErrAccountLocked].
func (e *Engine) CheckLockout(ctx context.Context, clientID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if clientID == "" {
		clientID = UnknownClient
	}
	if err := e.checkLockout(clientID); err != nil {
		e.metricInc(MetricLoginLocked)
		return err
	}
	return nil
}

func (e *Engine) checkLockout(clientID string) error {
	retryAfter, locked := e.lockout.Check(clientID)
	if !locked {
		return nil
	}
	return &RetryError{Err: ErrAccountLocked, RetryAfter: retryAfter}
}

func (e *Engine) recordLoginFailure(ctx context.Context, clientID string) {
	lockedUntil, locked := e.lockout.RecordFailure(clientID)
	if !locked {
		return
	}
	e.metricInc(MetricLockoutTriggered)
	e.emitAudit(ctx, audit.EventLockoutTriggered, false, "", ErrAccountLocked, func() map[string]string {
		return map[string]string{"locked_until": lockedUntil.UTC().Format(time.RFC3339)}
	})
}

func (e *Engine) logInternal(ctx context.Context, op, userID string, err error) {
	e.metricInc(MetricInternalError)
	e.logger.Error("internal failure",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("client_ip", clientIPFromContext(ctx)),
		zap.Error(err),
	)
}

func (e *Engine) logWarn(ctx context.Context, op, userID string, err error) {
	e.logger.Warn("degraded operation",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("client_ip", clientIPFromContext(ctx)),
		zap.Error(err),
	)
}
