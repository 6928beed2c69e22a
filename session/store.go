package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "refresh_token:"
	indexKeyPrefix   = "user_sessions:"
)

// Store is a Redis-backed refresh session store.
//
//	Performance: Put is one MULTI/EXEC, Get is one GET, Revoke is GETDEL + SREM.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client. prefix
// is prepended to every key and may be empty.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(tokenHash string) string {
	return s.prefix + sessionKeyPrefix + tokenHash
}

func (s *Store) indexKey(userID string) string {
	return s.prefix + indexKeyPrefix + userID
}

// Put writes sess with a TTL and adds its hash to the owner's index. Both
// writes go in one transaction; the index entry carries no TTL.
func (s *Store) Put(ctx context.Context, sess *RefreshSession, ttl time.Duration) error {
	if err := sess.validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.TokenHash), data, ttl)
		pipe.SAdd(ctx, s.indexKey(sess.UserID), sess.TokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the live session for tokenHash, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, tokenHash string) (*RefreshSession, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decode(data)
}

// Revoke deletes the session for tokenHash and removes it from the owner's
// index. Revoking a missing session is a no-op.
//
// The delete is a single GETDEL, so a concurrent refresh either read the
// session before the delete or observes it missing.
func (s *Store) Revoke(ctx context.Context, tokenHash string) error {
	data, err := s.redis.GetDel(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		// the session is gone either way; the index entry becomes stale and
		// is dropped by PruneIndex.
		return nil
	}

	if err := s.redis.SRem(ctx, s.indexKey(sess.UserID), tokenHash).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAllForUser deletes every indexed session of userID together with the
// index and returns how many of them were still live.
//
// ATOMICITY NOTE: the index is read before the delete transaction, so a
// session created in between survives. It is bounded by its own TTL and can
// be caught by a second call.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	indexKey := s.indexKey(userID)

	hashes, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, s.key(h))
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// PruneIndex removes index members whose session no longer exists and
// returns how many were removed.
func (s *Store) PruneIndex(ctx context.Context, userID string) (int, error) {
	indexKey := s.indexKey(userID)

	hashes, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(hashes))
	for i, h := range hashes {
		existsCmds[i] = pipe.Exists(ctx, s.key(h))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stale := make([]interface{}, 0, len(hashes))
	for i, cmd := range existsCmds {
		if cmd.Val() == 0 {
			stale = append(stale, hashes[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed, err := s.redis.SRem(ctx, indexKey, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(removed), nil
}

// ActiveSessions returns the token hashes indexed for userID. Entries may be
// stale until the next prune.
func (s *Store) ActiveSessions(ctx context.Context, userID string) ([]string, error) {
	hashes, err := s.redis.SMembers(ctx, s.indexKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return hashes, nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func decode(data []byte) (*RefreshSession, error) {
	var sess RefreshSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sess.UserID == "" || sess.TokenHash == "" {
		return nil, ErrCorrupt
	}
	return &sess, nil
}
