package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type contractStore interface {
	Put(ctx context.Context, sess *RefreshSession, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*RefreshSession, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	PruneIndex(ctx context.Context, userID string) (int, error)
	ActiveSessions(ctx context.Context, userID string) ([]string, error)
}

type storeHarness struct {
	store   contractStore
	advance func(time.Duration)
}

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(rdb, ""), mr, rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func harnesses(t *testing.T) map[string]func(t *testing.T) (storeHarness, func()) {
	t.Helper()
	return map[string]func(t *testing.T) (storeHarness, func()){
		"redis": func(t *testing.T) (storeHarness, func()) {
			store, mr, _, done := newSessionStoreTest(t)
			return storeHarness{store: store, advance: mr.FastForward}, done
		},
		"memory": func(t *testing.T) (storeHarness, func()) {
			var mu sync.Mutex
			now := time.Unix(1_700_000_000, 0)
			clock := func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				return now
			}
			advance := func(d time.Duration) {
				mu.Lock()
				now = now.Add(d)
				mu.Unlock()
			}
			return storeHarness{store: NewMemoryStore(clock), advance: advance}, func() {}
		},
	}
}

func testSession(userID, rawToken string) *RefreshSession {
	now := time.Now()
	return &RefreshSession{
		UserID:    userID,
		TokenHash: HashToken(rawToken),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, build := range harnesses(t) {
		t.Run(name+"/put get revoke", func(t *testing.T) {
			h, done := build(t)
			defer done()
			ctx := context.Background()
			sess := testSession("u-1", "refresh-a")

			if err := h.store.Put(ctx, sess, time.Hour); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := h.store.Get(ctx, sess.TokenHash)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if *got != *sess {
				t.Fatalf("round trip mismatch: want %+v got %+v", sess, got)
			}

			if err := h.store.Revoke(ctx, sess.TokenHash); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if _, err := h.store.Get(ctx, sess.TokenHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after revoke, got %v", err)
			}
			if err := h.store.Revoke(ctx, sess.TokenHash); err != nil {
				t.Fatalf("second revoke must be a no-op, got %v", err)
			}
			ids, err := h.store.ActiveSessions(ctx, "u-1")
			if err != nil {
				t.Fatalf("active sessions: %v", err)
			}
			if len(ids) != 0 {
				t.Fatalf("expected index cleared on revoke, got %v", ids)
			}
		})

		t.Run(name+"/ttl expiry", func(t *testing.T) {
			h, done := build(t)
			defer done()
			ctx := context.Background()
			sess := testSession("u-1", "refresh-b")

			if err := h.store.Put(ctx, sess, time.Minute); err != nil {
				t.Fatalf("put: %v", err)
			}
			h.advance(2 * time.Minute)
			if _, err := h.store.Get(ctx, sess.TokenHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected store-side expiry, got %v", err)
			}

			ids, err := h.store.ActiveSessions(ctx, "u-1")
			if err != nil {
				t.Fatalf("active sessions: %v", err)
			}
			if len(ids) != 1 {
				t.Fatalf("expected stale index entry to remain until prune, got %v", ids)
			}

			removed, err := h.store.PruneIndex(ctx, "u-1")
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if removed != 1 {
				t.Fatalf("expected one stale hash pruned, got %d", removed)
			}
		})

		t.Run(name+"/prune keeps live", func(t *testing.T) {
			h, done := build(t)
			defer done()
			ctx := context.Background()
			short := testSession("u-1", "short")
			long := testSession("u-1", "long")

			if err := h.store.Put(ctx, short, time.Minute); err != nil {
				t.Fatalf("put short: %v", err)
			}
			if err := h.store.Put(ctx, long, time.Hour); err != nil {
				t.Fatalf("put long: %v", err)
			}
			h.advance(5 * time.Minute)

			removed, err := h.store.PruneIndex(ctx, "u-1")
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if removed != 1 {
				t.Fatalf("expected one pruned, got %d", removed)
			}
			ids, err := h.store.ActiveSessions(ctx, "u-1")
			if err != nil {
				t.Fatalf("active sessions: %v", err)
			}
			if len(ids) != 1 || ids[0] != long.TokenHash {
				t.Fatalf("expected only the live hash to remain, got %v", ids)
			}
		})

		t.Run(name+"/revoke all", func(t *testing.T) {
			h, done := build(t)
			defer done()
			ctx := context.Background()

			for _, raw := range []string{"t1", "t2", "t3"} {
				if err := h.store.Put(ctx, testSession("u-1", raw), time.Hour); err != nil {
					t.Fatalf("put: %v", err)
				}
			}
			other := testSession("u-2", "t4")
			if err := h.store.Put(ctx, other, time.Hour); err != nil {
				t.Fatalf("put other: %v", err)
			}

			n, err := h.store.RevokeAllForUser(ctx, "u-1")
			if err != nil {
				t.Fatalf("revoke all: %v", err)
			}
			if n != 3 {
				t.Fatalf("expected 3 sessions revoked, got %d", n)
			}
			if _, err := h.store.Get(ctx, HashToken("t2")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected u-1 session gone, got %v", err)
			}
			if _, err := h.store.Get(ctx, other.TokenHash); err != nil {
				t.Fatalf("expected u-2 session untouched, got %v", err)
			}
			if n, err := h.store.RevokeAllForUser(ctx, "nobody"); err != nil || n != 0 {
				t.Fatalf("expected empty revoke all, got %d %v", n, err)
			}
		})

		t.Run(name+"/rejects invalid session", func(t *testing.T) {
			h, done := build(t)
			defer done()
			ctx := context.Background()

			if err := h.store.Put(ctx, &RefreshSession{UserID: "u-1", TokenHash: "raw-token"}, time.Hour); err == nil {
				t.Fatal("expected non-hash token to be rejected")
			}
			if err := h.store.Put(ctx, testSession("", "x"), time.Hour); err == nil {
				t.Fatal("expected empty user id to be rejected")
			}
			if err := h.store.Put(ctx, testSession("u-1", "x"), 0); err == nil {
				t.Fatal("expected zero ttl to be rejected")
			}
		})
	}
}

func TestStoreKeyLayout(t *testing.T) {
	store, mr, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession("u-1", "refresh-layout")

	if err := store.Put(ctx, sess, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("refresh_token:" + sess.TokenHash) {
		t.Fatal("expected session under refresh_token:{hash}")
	}
	members, err := mr.Members("user_sessions:u-1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != sess.TokenHash {
		t.Fatalf("unexpected index members %v", members)
	}
	if ttl := mr.TTL("refresh_token:" + sess.TokenHash); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected session ttl in (0, 1h], got %v", ttl)
	}
	if ttl := mr.TTL("user_sessions:u-1"); ttl != 0 {
		t.Fatalf("expected index without ttl, got %v", ttl)
	}

	raw, err := mr.Get("refresh_token:" + sess.TokenHash)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if strings.Contains(raw, "refresh-layout") {
		t.Fatal("raw refresh token must not be persisted")
	}
}

func TestStorePrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewStore(rdb, "bookstore:")
	sess := testSession("u-1", "prefixed")
	if err := store.Put(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("bookstore:refresh_token:" + sess.TokenHash) {
		t.Fatal("expected prefixed session key")
	}
}

func TestStoreCorruptBlob(t *testing.T) {
	store, mr, _, done := newSessionStoreTest(t)
	defer done()
	hash := HashToken("corrupt")
	if err := mr.Set("refresh_token:"+hash, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.Get(context.Background(), hash); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if err := store.Revoke(context.Background(), hash); err != nil {
		t.Fatalf("revoke of corrupt blob should still delete, got %v", err)
	}
	if mr.Exists("refresh_token:" + hash) {
		t.Fatal("expected corrupt blob deleted")
	}
}

func TestStoreRedisUnavailable(t *testing.T) {
	store, mr, _, done := newSessionStoreTest(t)
	defer done()
	mr.Close()
	ctx := context.Background()

	if err := store.Put(ctx, testSession("u-1", "x"), time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("put: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Get(ctx, HashToken("x")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("get: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Revoke(ctx, HashToken("x")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("revoke: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRevokeRacingGetHasTwoOutcomes(t *testing.T) {
	store, _, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		sess := testSession("u-1", "race-"+string(rune('a'+i)))
		if err := store.Put(ctx, sess, time.Hour); err != nil {
			t.Fatalf("put: %v", err)
		}

		var wg sync.WaitGroup
		var getErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, getErr = store.Get(ctx, sess.TokenHash)
		}()
		go func() {
			defer wg.Done()
			if err := store.Revoke(ctx, sess.TokenHash); err != nil {
				t.Errorf("revoke: %v", err)
			}
		}()
		wg.Wait()

		if getErr != nil && !errors.Is(getErr, ErrNotFound) {
			t.Fatalf("unexpected get error %v", getErr)
		}
		if _, err := store.Get(ctx, sess.TokenHash); !errors.Is(err, ErrNotFound) {
			t.Fatalf("session must be revoked after the race, got %v", err)
		}
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token")
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != strings.ToLower(a) {
		t.Fatal("expected lowercase hex")
	}
	if a == HashToken("token2") {
		t.Fatal("expected distinct hashes")
	}
	if a != HashToken("token") {
		t.Fatal("expected deterministic hash")
	}
}

func TestIsExpired(t *testing.T) {
	sess := &RefreshSession{ExpiresAt: 100}
	if sess.IsExpired(time.Unix(99, 0)) {
		t.Fatal("not expired before deadline")
	}
	if !sess.IsExpired(time.Unix(100, 0)) {
		t.Fatal("expired at deadline")
	}
}
