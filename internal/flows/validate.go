package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storeAuth/jwt"
)

// Identity is the flow-local validate result.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// ValidateMetrics carries metric IDs used by the validate flow.
type ValidateMetrics struct {
	Success int
	Failure int
	Latency int
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	Now func() time.Time

	VerifyAccess   func(string) (*jwt.AccessClaims, error)
	GetUserByID    func(context.Context, string) (UserRecord, error)
	ResolveRoles   func(context.Context, string) ([]string, error)
	ObserveLatency func(id int, d time.Duration)

	Hooks   Hooks
	Metrics ValidateMetrics
	Errors  Errors
}

// RunValidate verifies an access token and returns the current identity of
// its subject. Roles come from the directory, not from the token snapshot.
func RunValidate(ctx context.Context, accessToken string, deps ValidateDeps) (*Identity, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.VerifyAccess == nil || deps.GetUserByID == nil || deps.ResolveRoles == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.ObserveLatency != nil {
		start := deps.Now()
		defer func() {
			deps.ObserveLatency(deps.Metrics.Latency, deps.Now().Sub(start))
		}()
	}

	claims, err := deps.VerifyAccess(accessToken)
	if err != nil {
		hooks.MetricInc(deps.Metrics.Failure)
		return nil, deps.Errors.InvalidToken
	}
	userID := claims.UserID()

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		hooks.MetricInc(deps.Metrics.Failure)
		if errors.Is(err, deps.Errors.UserNotFound) {
			return nil, deps.Errors.UserNotFound
		}
		hooks.LogInternal(ctx, "validate.lookup", userID, err)
		return nil, deps.Errors.Internal
	}
	if user.Disabled {
		hooks.MetricInc(deps.Metrics.Failure)
		return nil, deps.Errors.UserNotFound
	}

	roles, err := deps.ResolveRoles(ctx, userID)
	if err != nil {
		hooks.MetricInc(deps.Metrics.Failure)
		hooks.LogInternal(ctx, "validate.roles", userID, err)
		return nil, deps.Errors.Internal
	}
	if roles == nil {
		roles = []string{}
	}

	hooks.MetricInc(deps.Metrics.Success)
	return &Identity{
		UserID:    user.UserID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     roles,
	}, nil
}
