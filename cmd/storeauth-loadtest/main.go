package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/storeAuth/internal/limiters"
	"github.com/MrEthical07/storeAuth/internal/rate"
	"github.com/MrEthical07/storeAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 50000, "number of refresh sessions to seed")
		users       = flag.Int("users", 5000, "number of distinct users owning the sessions")
		clients     = flag.Int("clients", 10000, "number of distinct client ids for the limiter phases")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *users <= 0 || *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, users, clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix)

	hashes := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		hashes[i] = session.HashToken(fmt.Sprintf("refresh-%d", i))
		if err := store.Put(ctx, buildSession(hashes[i], i%*users), 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "put failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	limiter := rate.New(rate.Config{MaxRequests: rate.DefaultMaxRequests, Window: rate.DefaultWindow}, nil)
	defer limiter.Close()
	lockout := limiters.NewLockout(limiters.LockoutConfig{}, nil)
	defer lockout.Close()

	var rejected atomic.Int64
	rateStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		if !limiter.Allow(clientID(r.Intn(*clients))).Allowed {
			rejected.Add(1)
		}
		return nil
	})

	var locked atomic.Int64
	lockoutStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		id := clientID(r.Intn(*clients))
		if _, isLocked := lockout.Check(id); isLocked {
			locked.Add(1)
			return nil
		}
		if r.Intn(4) == 0 {
			lockout.RecordSuccess(id)
		} else {
			lockout.RecordFailure(id)
		}
		return nil
	})

	getStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		_, err := store.Get(ctx, hashes[r.Intn(len(hashes))])
		return err
	})

	// revoke then re-create so the working set stays constant
	revokeStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		idx := r.Intn(len(hashes))
		if err := store.Revoke(ctx, hashes[idx]); err != nil {
			return err
		}
		return store.Put(ctx, buildSession(hashes[idx], idx%*users), 24*time.Hour)
	})

	var pruned atomic.Int64
	pruneStats := runPhase(*users, *concurrency, func(_ *rand.Rand, i int) error {
		n, err := store.PruneIndex(ctx, userID(i))
		pruned.Add(int64(n))
		return err
	})

	fmt.Println("---- results ----")
	printStats("rate.allow", rateStats)
	fmt.Printf("  rejected=%d\n", rejected.Load())
	printStats("lockout.record", lockoutStats)
	fmt.Printf("  locked=%d\n", locked.Load())
	printStats("session.get", getStats)
	printStats("session.revoke+put", revokeStats)
	printStats("session.prune", pruneStats)
	fmt.Printf("  pruned=%d\n", pruned.Load())
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildSession(tokenHash string, user int) *session.RefreshSession {
	now := time.Now()
	return &session.RefreshSession{
		UserID:    userID(user),
		TokenHash: tokenHash,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
	}
}

func userID(i int) string {
	return fmt.Sprintf("user-%d", i)
}

func clientID(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
}
