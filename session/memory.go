package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	sess     RefreshSession
	deadline time.Time
}

// MemoryStore is an in-process implementation of the [Store] contract for
// tests and single-process demos. Expiry is evaluated lazily against the
// injected clock.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memoryEntry
	index    map[string]map[string]struct{}
}

// NewMemoryStore creates an empty [MemoryStore]. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:      now,
		sessions: make(map[string]memoryEntry),
		index:    make(map[string]map[string]struct{}),
	}
}

// Put stores sess until now+ttl and indexes it under its owner.
func (m *MemoryStore) Put(_ context.Context, sess *RefreshSession, ttl time.Duration) error {
	if err := sess.validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sess.TokenHash] = memoryEntry{sess: *sess, deadline: m.now().Add(ttl)}
	set, ok := m.index[sess.UserID]
	if !ok {
		set = make(map[string]struct{})
		m.index[sess.UserID] = set
	}
	set[sess.TokenHash] = struct{}{}
	return nil
}

// Get returns the live session for tokenHash, or [ErrNotFound].
func (m *MemoryStore) Get(_ context.Context, tokenHash string) (*RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveLocked(tokenHash)
	if !ok {
		return nil, ErrNotFound
	}
	sess := entry.sess
	return &sess, nil
}

// Revoke deletes the session and its index entry. Missing sessions are a
// no-op.
func (m *MemoryStore) Revoke(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[tokenHash]
	if !ok {
		return nil
	}
	delete(m.sessions, tokenHash)
	if set := m.index[entry.sess.UserID]; set != nil {
		delete(set, tokenHash)
		if len(set) == 0 {
			delete(m.index, entry.sess.UserID)
		}
	}
	return nil
}

// RevokeAllForUser deletes every indexed session of userID and returns how
// many were live.
func (m *MemoryStore) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := 0
	for hash := range m.index[userID] {
		if _, ok := m.liveLocked(hash); ok {
			live++
		}
		delete(m.sessions, hash)
	}
	delete(m.index, userID)
	return live, nil
}

// PruneIndex drops index members whose session expired or was removed.
func (m *MemoryStore) PruneIndex(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	set := m.index[userID]
	for hash := range set {
		if _, ok := m.liveLocked(hash); !ok {
			delete(set, hash)
			removed++
		}
	}
	if set != nil && len(set) == 0 {
		delete(m.index, userID)
	}
	return removed, nil
}

// ActiveSessions returns the indexed token hashes of userID in sorted order.
func (m *MemoryStore) ActiveSessions(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.index[userID]))
	for hash := range m.index[userID] {
		out = append(out, hash)
	}
	sort.Strings(out)
	return out, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// liveLocked returns the entry if present and unexpired; an expired entry is
// removed from the session map but left in the index, as Redis would.
func (m *MemoryStore) liveLocked(tokenHash string) (memoryEntry, bool) {
	entry, ok := m.sessions[tokenHash]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(entry.deadline) {
		delete(m.sessions, tokenHash)
		return memoryEntry{}, false
	}
	return entry, true
}
