package middleware

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	storeAuth "github.com/MrEthical07/storeAuth"
)

// Error codes carried in the "error" field of failure bodies.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeAccountExists      = "ACCOUNT_EXISTS"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	RetryAfter *int64 `json:"retry_after,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorTable = []errorMapping{
	{storeAuth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password"},
	{storeAuth.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token"},
	{storeAuth.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{storeAuth.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded"},
	{storeAuth.ErrAccountLocked, http.StatusTooManyRequests, CodeAccountLocked, "Account temporarily locked"},
	{storeAuth.ErrAccountExists, http.StatusConflict, CodeAccountExists, "Account already exists"},
	{storeAuth.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest, "Invalid request"},
}

// StatusFor maps an Engine error to its HTTP status, error code and public
// message. Unknown errors map to 500.
func StatusFor(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, CodeInternal, "Internal server error"
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// WriteError renders err as an [ErrorResponse]. A 429 also carries the
// Retry-After header and the retry_after field.
func WriteError(w http.ResponseWriter, err error) {
	status, code, message := StatusFor(err)
	body := ErrorResponse{Success: false, Message: message, Error: code}

	if status == http.StatusTooManyRequests {
		secs := RetryAfterSeconds(storeAuth.RetryAfter(err))
		body.RetryAfter = &secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	WriteJSON(w, status, body)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
