package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no live session exists for a token hash.
	ErrNotFound = errors.New("refresh session not found")
	// ErrStoreUnavailable wraps transport failures from the backing store.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a stored session cannot be decoded.
	ErrCorrupt = errors.New("refresh session corrupt")
)

// RefreshSession is the persisted metadata of one refresh token.
//
// Times are second-granularity Unix timestamps.
type RefreshSession struct {
	UserID    string `json:"user_id"`
	TokenHash string `json:"token_hash"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

// IsExpired reports whether the session expiry has passed at now.
func (s *RefreshSession) IsExpired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

func (s *RefreshSession) validate() error {
	if s == nil {
		return errors.New("nil session")
	}
	if s.UserID == "" {
		return errors.New("session user id is empty")
	}
	if len(s.TokenHash) != sha256.Size*2 {
		return fmt.Errorf("session token hash must be %d hex chars", sha256.Size*2)
	}
	return nil
}

// HashToken returns the lowercase hex SHA-256 of a raw refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
