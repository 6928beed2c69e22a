package flows

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

const maxNameLength = 100

// RegisterInput is the flow-local sign-up request. PasswordHash is filled by
// the flow before CreateUser is called.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	PasswordHash string
}

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	Success     int
	Duplicate   int
	RateLimited int
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	MinPasswordBytes int
	MaxPasswordBytes int

	ClientIPFromContext func(context.Context) string
	EnforceLimit        func(ctx context.Context, email, clientID string) error

	GetUserByIdentifier func(context.Context, string) (UserRecord, error)
	HashPassword        func(string) (string, error)
	CreateUser          func(context.Context, RegisterInput) (UserRecord, error)

	Hooks   Hooks
	Metrics RegisterMetrics
	Event   string
	Errors  Errors
}

// NormalizeEmail trims and lowercases an email identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RunRegister validates the request, rejects duplicates, hashes the password
// and creates the user. It issues no tokens.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (*UserRecord, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.GetUserByIdentifier == nil || deps.HashPassword == nil || deps.CreateUser == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	ip := deps.ClientIPFromContext(ctx)

	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if reason := validateRegisterInput(in, deps); reason != "" {
		hooks.EmitAudit(ctx, deps.Event, false, "", deps.Errors.InvalidRequest, func() map[string]string {
			return map[string]string{"reason": reason, "ip": ip}
		})
		return nil, deps.Errors.InvalidRequest
	}

	if deps.EnforceLimit != nil {
		if err := deps.EnforceLimit(ctx, in.Email, ip); err != nil {
			if errors.Is(err, deps.Errors.RateLimited) {
				hooks.MetricInc(deps.Metrics.RateLimited)
				hooks.EmitAudit(ctx, deps.Event, false, "", err, func() map[string]string {
					return map[string]string{"reason": "rate_limited", "ip": ip}
				})
				return nil, err
			}
			hooks.LogInternal(ctx, "register.limit", "", err)
			return nil, deps.Errors.Internal
		}
	}

	if _, err := deps.GetUserByIdentifier(ctx, in.Email); err == nil {
		hooks.MetricInc(deps.Metrics.Duplicate)
		hooks.EmitAudit(ctx, deps.Event, false, "", deps.Errors.AccountExists, func() map[string]string {
			return map[string]string{"reason": "duplicate", "ip": ip}
		})
		return nil, deps.Errors.AccountExists
	} else if !errors.Is(err, deps.Errors.UserNotFound) {
		hooks.LogInternal(ctx, "register.lookup", "", err)
		return nil, deps.Errors.Internal
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		hooks.LogInternal(ctx, "register.hash", "", err)
		return nil, deps.Errors.Internal
	}
	in.Password = ""
	in.PasswordHash = hash

	user, err := deps.CreateUser(ctx, in)
	if err != nil {
		// a concurrent sign-up can pass the lookup and lose at the unique index
		if errors.Is(err, deps.Errors.AccountExists) {
			hooks.MetricInc(deps.Metrics.Duplicate)
			hooks.EmitAudit(ctx, deps.Event, false, "", deps.Errors.AccountExists, func() map[string]string {
				return map[string]string{"reason": "duplicate", "ip": ip}
			})
			return nil, deps.Errors.AccountExists
		}
		hooks.LogInternal(ctx, "register.create", "", err)
		return nil, deps.Errors.Internal
	}

	hooks.MetricInc(deps.Metrics.Success)
	hooks.EmitAudit(ctx, deps.Event, true, user.UserID, nil, func() map[string]string {
		return map[string]string{"ip": ip}
	})
	return &user, nil
}

func validateRegisterInput(in RegisterInput, deps RegisterDeps) string {
	if in.Email == "" {
		return "empty_email"
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return "invalid_email"
	}
	if in.FirstName == "" || in.LastName == "" {
		return "empty_name"
	}
	if len(in.FirstName) > maxNameLength || len(in.LastName) > maxNameLength {
		return "name_too_long"
	}
	if deps.MinPasswordBytes > 0 && len(in.Password) < deps.MinPasswordBytes {
		return "password_too_short"
	}
	if deps.MaxPasswordBytes > 0 && len(in.Password) > deps.MaxPasswordBytes {
		return "password_too_long"
	}
	return ""
}
