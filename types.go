package storeAuth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/storeAuth/internal/audit"
	"github.com/MrEthical07/storeAuth/session"
	"go.uber.org/zap"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive accounts may log in, refresh and validate.
	AccountActive AccountStatus = iota
	// AccountDisabled accounts are rejected by every flow.
	AccountDisabled
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// UserRecord is the account record returned by [UserProvider].
type UserRecord struct {
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Status       AccountStatus
}

// CreateUserInput is the input for [UserProvider.CreateUser]. Email is
// already normalized and PasswordHash is a PHC string.
type CreateUserInput struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

// UserProvider is the user and role directory the engine consumes.
//
// GetUserByIdentifier and GetUserByID return an error wrapping
// [ErrUserNotFound] on a miss. CreateUser returns an error wrapping
// [ErrAccountExists] when the email is taken. Any other error is treated as
// a backend failure and surfaces as [ErrInternal].
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	ResolveRoles(ctx context.Context, userID string) ([]string, error)
}

// PasswordHasher hashes and verifies passwords. [password.Argon2] is the
// default implementation.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// SessionStore persists refresh sessions. [session.Store] (Redis) and
// [session.MemoryStore] implement it.
type SessionStore interface {
	Put(ctx context.Context, sess *session.RefreshSession, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*session.RefreshSession, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	PruneIndex(ctx context.Context, userID string) (int, error)
	ActiveSessions(ctx context.Context, userID string) ([]string, error)
	Ping(ctx context.Context) error
}

// Identity is returned by [Engine.Validate]. Roles reflect the directory at
// validation time, not the token snapshot.
type Identity struct {
	UserID    string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"fname"`
	LastName  string   `json:"lname"`
	Roles     []string `json:"roles"`
}

// TokenPair is returned by [Engine.Login].
type TokenPair struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshResult is returned by [Engine.Refresh]. The refresh token is not
// rotated.
type RefreshResult struct {
	UserID          string
	AccessToken     string
	AccessExpiresAt time.Time
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is returned by [Engine.Register]. No tokens are issued.
type RegisterResult struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes events as structured zap log lines.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] logging through a child of logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
