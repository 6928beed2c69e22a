package storeAuth

import (
	"context"
	"testing"
)

func newBenchmarkEngine(b *testing.B) (*testEngine, UserRecord) {
	b.Helper()
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.Lockout.Enabled = false
	te := newTestEngine(b, cfg)
	return te, te.users.addUser(b, "bench@example.com", testPassword, "customer")
}

func BenchmarkValidate(b *testing.B) {
	te, _ := newBenchmarkEngine(b)
	ctx := context.Background()

	pair, err := te.Login(ctx, "bench@example.com", testPassword)
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := te.Validate(ctx, pair.AccessToken); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	te, _ := newBenchmarkEngine(b)
	ctx := context.Background()

	pair, err := te.Login(ctx, "bench@example.com", testPassword)
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := te.Refresh(ctx, pair.RefreshToken); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkLoginLogout(b *testing.B) {
	te, _ := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err := te.Login(ctx, "bench@example.com", testPassword)
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		if err := te.LogoutToken(ctx, pair.RefreshToken); err != nil {
			b.Fatalf("logout failed: %v", err)
		}
	}
}

func BenchmarkCheckRateLimitParallel(b *testing.B) {
	te := newTestEngine(b, testConfig())
	ctx := context.Background()
	clients := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3", "198.51.100.4"}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = te.CheckRateLimit(ctx, clients[i%len(clients)])
			i++
		}
	})
}
