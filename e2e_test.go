package storeAuth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/MrEthical07/storeAuth/internal/userstore/memory"
	"github.com/MrEthical07/storeAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newE2EEngine(t *testing.T) (*storeAuth.Engine, *memory.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := storeAuth.DefaultConfig()
	cfg.JWT.AccessKey = []byte("e2e-access-signing-key-0123456789abcdef")
	cfg.JWT.RefreshKey = []byte("e2e-refresh-signing-key-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	users := memory.New("customer")
	engine, err := storeAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, users, mr
}

func TestEndToEndAccountLifecycle(t *testing.T) {
	engine, users, mr := newE2EEngine(t)
	ctx := storeAuth.WithClientIP(context.Background(), "203.0.113.5")

	reg, err := engine.Register(ctx, storeAuth.RegisterInput{
		Email:     "shopper@example.com",
		Password:  "tr0ub4dor&3-long",
		FirstName: "Sam",
		LastName:  "Shopper",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := engine.Login(ctx, "shopper@example.com", "tr0ub4dor&3-long")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.UserID != reg.UserID || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected pair %+v", pair)
	}
	if ttl := mr.TTL("refresh_token:" + session.HashToken(pair.RefreshToken)); ttl <= 0 || ttl > 7*24*time.Hour {
		t.Fatalf("session key ttl out of range: %v", ttl)
	}

	id, err := engine.Validate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.Email != "shopper@example.com" || len(id.Roles) != 1 || id.Roles[0] != "customer" {
		t.Fatalf("unexpected identity %+v", id)
	}

	if err := users.SetRoles(reg.UserID, "customer", "admin"); err != nil {
		t.Fatalf("set roles: %v", err)
	}
	refreshed, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	id, err = engine.Validate(ctx, refreshed.AccessToken)
	if err != nil || len(id.Roles) != 2 {
		t.Fatalf("expected updated roles, got %+v %v", id, err)
	}

	if err := engine.LogoutToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, storeAuth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	// logout is idempotent
	if err := engine.LogoutToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	users.Delete(reg.UserID)
	if _, err := engine.Validate(ctx, refreshed.AccessToken); !errors.Is(err, storeAuth.ErrUserNotFound) {
		t.Fatalf("deleted user: expected ErrUserNotFound, got %v", err)
	}
}

func TestEndToEndLockoutAndRateLimit(t *testing.T) {
	engine, _, _ := newE2EEngine(t)
	ctx := storeAuth.WithClientIP(context.Background(), "203.0.113.6")

	if _, err := engine.Register(ctx, storeAuth.RegisterInput{
		Email: "victim@example.com", Password: "a-real-password", FirstName: "V", LastName: "Ictim",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := engine.Login(ctx, "victim@example.com", "guess-"+string(rune('a'+i))+"-wrong"); !errors.Is(err, storeAuth.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	_, err := engine.Login(ctx, "victim@example.com", "a-real-password")
	var retry *storeAuth.RetryError
	if !errors.As(err, &retry) || !errors.Is(err, storeAuth.ErrAccountLocked) {
		t.Fatalf("expected locked RetryError, got %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := engine.CheckRateLimit(ctx, "203.0.113.6"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := engine.CheckRateLimit(ctx, "203.0.113.6"); !errors.Is(err, storeAuth.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestEndToEndLogoutAll(t *testing.T) {
	engine, _, mr := newE2EEngine(t)
	ctx := context.Background()

	reg, err := engine.Register(ctx, storeAuth.RegisterInput{
		Email: "multi@example.com", Password: "device-password", FirstName: "M", LastName: "D",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var tokens []string
	for i := 0; i < 2; i++ {
		p, err := engine.Login(ctx, "multi@example.com", "device-password")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		tokens = append(tokens, p.RefreshToken)
	}

	n, err := engine.LogoutAll(ctx, reg.UserID)
	if err != nil || n != 2 {
		t.Fatalf("logout all: %d %v", n, err)
	}
	for _, tok := range tokens {
		if mr.Exists("refresh_token:" + session.HashToken(tok)) {
			t.Fatal("session key should be gone")
		}
		if _, err := engine.Refresh(ctx, tok); !errors.Is(err, storeAuth.ErrInvalidToken) {
			t.Fatalf("expected invalid token, got %v", err)
		}
	}
}
