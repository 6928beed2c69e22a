package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	storeAuth "github.com/MrEthical07/storeAuth"
)

// Validator is satisfied by [storeAuth.Engine].
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*storeAuth.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Guard].
func IdentityFromContext(ctx context.Context) (*storeAuth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*storeAuth.Identity)
	return id, ok && id != nil
}

// Guard requires a valid "Authorization: Bearer" access token. Missing or
// rejected tokens get 401; a subject that no longer resolves gets 404.
func Guard(validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				WriteError(w, storeAuth.ErrInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, storeAuth.ErrInvalidToken)
				return
			}

			id, err := validator.Validate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, storeAuth.ErrUserNotFound) && !errors.Is(err, storeAuth.ErrInternal) {
					err = storeAuth.ErrInvalidToken
				}
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// RequireRole admits identities holding at least one of roles. It must run
// after [Guard]; without an identity the request gets 401, and a missing
// role gets 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, storeAuth.ErrInvalidToken)
				return
			}
			for _, role := range id.Roles {
				if _, ok := allowed[strings.ToLower(role)]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Success: false,
				Message: "Insufficient role",
				Error:   CodeForbidden,
			})
		})
	}
}
