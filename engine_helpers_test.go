package storeAuth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/storeAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_760_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUserProvider struct {
	mu       sync.Mutex
	users    map[string]UserRecord
	roles    map[string][]string
	nextID   int
	failNext error
}

func newFakeUserProvider() *fakeUserProvider {
	return &fakeUserProvider{
		users: map[string]UserRecord{},
		roles: map[string][]string{},
	}
}

func (p *fakeUserProvider) addUser(t testing.TB, email, plain string, roles ...string) UserRecord {
	t.Helper()
	h, err := password.NewArgon2(testPasswordConfig())
	if err != nil {
		t.Fatalf("argon2: %v", err)
	}
	hash, err := h.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	u := UserRecord{
		UserID:       fmt.Sprintf("user-%d", p.nextID),
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Status:       AccountActive,
	}
	p.users[u.UserID] = u
	p.roles[u.UserID] = roles
	return u
}

func (p *fakeUserProvider) setStatus(userID string, status AccountStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.users[userID]
	u.Status = status
	p.users[userID] = u
}

func (p *fakeUserProvider) setRoles(userID string, roles ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[userID] = roles
}

func (p *fakeUserProvider) takeFailure() error {
	err := p.failNext
	p.failNext = nil
	return err
}

func (p *fakeUserProvider) GetUserByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(); err != nil {
		return UserRecord{}, err
	}
	for _, u := range p.users {
		if strings.EqualFold(u.Email, identifier) {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (p *fakeUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(); err != nil {
		return UserRecord{}, err
	}
	u, ok := p.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (p *fakeUserProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if strings.EqualFold(u.Email, in.Email) {
			return UserRecord{}, ErrAccountExists
		}
	}
	p.nextID++
	u := UserRecord{
		UserID:       fmt.Sprintf("user-%d", p.nextID),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Status:       AccountActive,
	}
	p.users[u.UserID] = u
	p.roles[u.UserID] = []string{"customer"}
	return u, nil
}

func (p *fakeUserProvider) ResolveRoles(_ context.Context, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.roles[userID]...), nil
}

func testPasswordConfig() password.Config {
	return password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessKey = []byte("storeauth-test-access-key-0123456789")
	cfg.JWT.RefreshKey = []byte("storeauth-test-refresh-key-0123456789")
	pw := testPasswordConfig()
	cfg.Password.Memory = pw.Memory
	cfg.Password.Time = pw.Time
	cfg.Password.Parallelism = pw.Parallelism
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Audit.BufferSize = 256
	cfg.RateLimit.CleanupInterval = 0
	cfg.Lockout.CleanupInterval = 0
	return cfg
}

type testEngine struct {
	*Engine
	redis *miniredis.Miniredis
	rdb   *redis.Client
	clock *testClock
	sink  *ChannelSink
	users *fakeUserProvider
}

func newTestEngine(t testing.TB, cfg Config) *testEngine {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := newTestClock()
	sink := NewChannelSink(1024)
	users := newFakeUserProvider()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, redis: mr, rdb: rdb, clock: clock, sink: sink, users: users}
}

// drainAudit closes the engine and returns every event that reached the sink.
func (te *testEngine) drainAudit() []AuditEvent {
	te.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-te.sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func withIP(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}
