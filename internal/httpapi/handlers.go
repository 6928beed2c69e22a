package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/MrEthical07/storeAuth/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// AuthService is satisfied by [storeAuth.Engine].
type AuthService interface {
	middleware.RateChecker
	middleware.LockoutChecker
	middleware.Validator

	Register(ctx context.Context, in storeAuth.RegisterInput) (*storeAuth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*storeAuth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*storeAuth.RefreshResult, error)
	LogoutToken(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	ActiveSessions(ctx context.Context, userID string) ([]string, error)
	RefreshTTL() time.Duration
	Ping(ctx context.Context) error
}

type authHandler struct {
	auth         AuthService
	log          *zap.Logger
	secureCookie bool
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, storeAuth.ErrInvalidRequest)
		return
	}

	res, err := h.auth.Register(r.Context(), storeAuth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, res)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, storeAuth.ErrInvalidRequest)
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	http.SetCookie(w, h.refreshCookie(pair.RefreshToken, int(h.auth.RefreshTTL()/time.Second)))
	middleware.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.writeError(w, r, "refresh", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, RefreshResponse{AccessToken: res.AccessToken})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.auth.LogoutToken(r.Context(), token); err != nil {
		h.writeError(w, r, "logout", err)
		return
	}

	http.SetCookie(w, h.refreshCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// logoutAll revokes every session of the authenticated caller.
func (h *authHandler) logoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, storeAuth.ErrInvalidToken)
		return
	}
	n, err := h.auth.LogoutAll(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, r, "logout_all", err)
		return
	}

	http.SetCookie(w, h.refreshCookie("", -1))
	middleware.WriteJSON(w, http.StatusOK, SessionsResponse{UserID: id.UserID, Count: n})
}

func (h *authHandler) adminSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	hashes, err := h.auth.ActiveSessions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "active_sessions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, SessionsResponse{UserID: userID, Count: len(hashes)})
}

func (h *authHandler) adminLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	n, err := h.auth.LogoutAll(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "admin_logout_all", err)
		return
	}
	h.log.Info("sessions revoked by admin",
		zap.String("user_id", userID),
		zap.Int("revoked", n),
		zap.String("client_ip", storeAuth.ClientIPFromContext(r.Context())),
	)
	middleware.WriteJSON(w, http.StatusOK, SessionsResponse{UserID: userID, Count: n})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, storeAuth.ErrInvalidToken)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, id)
}

func (h *authHandler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Ping(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (h *authHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if status, _, _ := middleware.StatusFor(err); status >= http.StatusInternalServerError {
		h.log.Error("auth request failed",
			zap.String("op", op),
			zap.String("client_ip", storeAuth.ClientIPFromContext(r.Context())),
			zap.Error(err),
		)
	}
	middleware.WriteError(w, err)
}

func (h *authHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// refreshTokenFrom prefers the cookie and falls back to a JSON body.
func refreshTokenFrom(r *http.Request) (string, error) {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return "", storeAuth.ErrInvalidRequest
	}
	if req.RefreshToken == "" {
		return "", storeAuth.ErrInvalidToken
	}
	return req.RefreshToken, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
