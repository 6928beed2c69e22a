// Package shard provides a string-keyed map split across independently
// locked shards, plus a ticker loop for periodic eviction.
//
// # Architecture boundaries
//
// The rate limiter and the lockout tracker keep their per-client state here.
// Request-path mutation and background sweeps take the same per-shard lock,
// so an entry is never observed mid-update.
//
// # What this package must NOT do
//
//   - Hold a lock across shards.
//   - Call user callbacks while holding more than one shard lock.
package shard

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is used when New is given a non-positive count.
const DefaultShards = 32

type bucket[V any] struct {
	mu      sync.Mutex
	entries map[string]*V
}

// Map is a sharded map of pointers to V. Entries are only reachable through
// Update and Sweep, which hold the owning shard's lock for the callback.
type Map[V any] struct {
	buckets []bucket[V]
}

// New returns a Map with n shards.
func New[V any](n int) *Map[V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Map[V]{buckets: make([]bucket[V], n)}
	for i := range m.buckets {
		m.buckets[i].entries = make(map[string]*V)
	}
	return m
}

func (m *Map[V]) bucketFor(key string) *bucket[V] {
	return &m.buckets[xxhash.Sum64String(key)%uint64(len(m.buckets))]
}

// Update runs fn under the shard lock for key. fn receives the current entry
// (nil when absent) and returns the entry to store; returning nil deletes it.
func (m *Map[V]) Update(key string, fn func(cur *V) *V) {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	next := fn(b.entries[key])
	if next == nil {
		delete(b.entries, key)
		return
	}
	b.entries[key] = next
}

// Sweep visits every entry one shard at a time. Entries for which keep
// returns false are removed. It returns the number of removed entries.
func (m *Map[V]) Sweep(keep func(key string, v *V) bool) int {
	removed := 0
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.Lock()
		for k, v := range b.entries {
			if !keep(k, v) {
				delete(b.entries, k)
				removed++
			}
		}
		b.mu.Unlock()
	}
	return removed
}

// Len returns the number of entries across all shards.
func (m *Map[V]) Len() int {
	n := 0
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.Lock()
		n += len(b.entries)
		b.mu.Unlock()
	}
	return n
}
