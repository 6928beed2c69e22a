package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the algorithm used for both token kinds.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 shared secrets.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with Ed25519 key pairs.
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	// TypeAccess is the typ claim of access tokens.
	TypeAccess = "access"
	// TypeRefresh is the typ claim of refresh tokens.
	TypeRefresh = "refresh"

	// MinHMACKeyLength is the minimum HS256 secret length in bytes.
	MinHMACKeyLength = 32
	// MaxLeeway bounds the accepted clock skew.
	MaxLeeway = 2 * time.Minute
)

// ErrInvalidToken is wrapped by every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// Config holds codec keys and lifetimes.
//
// For HS256, AccessKey and RefreshKey are the shared secrets. For Ed25519 they
// are private keys (raw or PEM); the public halves are derived unless
// AccessPublicKey / RefreshPublicKey are set, which allows verify-only
// managers.
type Config struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SigningMethod    SigningMethod
	AccessKey        []byte
	RefreshKey       []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte
	Issuer           string
	Audience         string
	Leeway           time.Duration
	Now              func() time.Time
}

// AccessClaims is the payload of an access token. Subject holds the user ID.
type AccessClaims struct {
	Roles     []string `json:"roles"`
	TokenType string   `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// RefreshClaims is the payload of a refresh token. It carries no roles.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type keySet struct {
	sign   any
	verify any
}

// Manager signs and verifies access and refresh tokens. It is safe for
// concurrent use.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	access  keySet
	refresh keySet
	parser  *jwt.Parser
}

// NewManager validates cfg and parses the keys once.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > MaxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256, "":
		m.config.SigningMethod = MethodHS256
		m.method = jwt.SigningMethodHS256
		if len(cfg.AccessKey) < MinHMACKeyLength {
			return nil, fmt.Errorf("hs256 access key must be at least %d bytes", MinHMACKeyLength)
		}
		if len(cfg.RefreshKey) < MinHMACKeyLength {
			return nil, fmt.Errorf("hs256 refresh key must be at least %d bytes", MinHMACKeyLength)
		}
		if bytes.Equal(cfg.AccessKey, cfg.RefreshKey) {
			return nil, errors.New("access and refresh keys must differ")
		}
		m.access = keySet{sign: cfg.AccessKey, verify: cfg.AccessKey}
		m.refresh = keySet{sign: cfg.RefreshKey, verify: cfg.RefreshKey}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		var err error
		if m.access, err = edKeySet(cfg.AccessKey, cfg.AccessPublicKey); err != nil {
			return nil, fmt.Errorf("access key: %w", err)
		}
		if m.refresh, err = edKeySet(cfg.RefreshKey, cfg.RefreshPublicKey); err != nil {
			return nil, fmt.Errorf("refresh key: %w", err)
		}
		if m.access.verify.(ed25519.PublicKey).Equal(m.refresh.verify) {
			return nil, errors.New("access and refresh keys must differ")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

// IssueAccess signs an access token for userID with a snapshot of roles and
// returns it with its expiry.
func (m *Manager) IssueAccess(userID string, roles []string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	if roles == nil {
		roles = []string{}
	}
	now := m.config.Now()
	exp := now.Add(m.config.AccessTTL)
	claims := AccessClaims{
		Roles:            roles,
		TokenType:        TypeAccess,
		RegisteredClaims: m.registered(userID, now, exp),
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.access.sign)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueRefresh signs a refresh token for userID and returns it with its
// expiry. Every refresh token carries a random jti, so two tokens minted in
// the same second differ.
func (m *Manager) IssueRefresh(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	now := m.config.Now()
	exp := now.Add(m.config.RefreshTTL)
	claims := RefreshClaims{
		TokenType:        TypeRefresh,
		RegisteredClaims: m.registered(userID, now, exp),
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.refresh.sign)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyAccess checks signature, expiry (with leeway) and claim structure.
func (m *Manager) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims, m.access.verify); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token against the refresh key and returns
// its subject.
func (m *Manager) VerifyRefresh(token string) (string, error) {
	claims, err := m.VerifyRefreshClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshClaims is VerifyRefresh returning the full claim set.
func (m *Manager) VerifyRefreshClaims(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims, m.refresh.verify); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (m *Manager) parse(token string, claims jwt.Claims, verifyKey any) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	parsed, err := m.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return verifyKey, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	return nil
}

func (m *Manager) registered(userID string, now, exp time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    m.config.Issuer,
	}
	if m.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return rc
}

func edKeySet(private, public []byte) (keySet, error) {
	var ks keySet
	if len(private) > 0 {
		priv, err := parseEdPrivateKey(private)
		if err != nil {
			return ks, err
		}
		ks.sign = priv
		ks.verify = priv.Public().(ed25519.PublicKey)
	}
	if len(public) > 0 {
		pub, err := parseEdPublicKey(public)
		if err != nil {
			return ks, err
		}
		ks.verify = pub
	}
	if ks.verify == nil {
		return ks, errors.New("ed25519 requires a private or public key")
	}
	return ks, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
