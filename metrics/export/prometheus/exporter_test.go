package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeSource struct {
	snapshot storeAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() storeAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func gather(t *testing.T, src fakeSource) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := NewExporterFromSource(src).Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectCountersAndHistogram(t *testing.T) {
	families := gather(t, fakeSource{
		snapshot: storeAuth.MetricsSnapshot{
			Counters: map[storeAuth.MetricID]uint64{
				storeAuth.MetricLoginSuccess: 7,
				storeAuth.MetricRateLimitHit: 3,
			},
			Histograms: map[storeAuth.MetricID][]uint64{
				storeAuth.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	if got := families["storeauth_login_success_total"].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("login success: got %v", got)
	}
	if got := families["storeauth_rate_limit_hit_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("rate limit hit: got %v", got)
	}
	if got := families["storeauth_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("audit dropped: got %v", got)
	}

	h := families["storeauth_validate_latency_seconds"].GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	if b := h.GetBucket()[0]; b.GetUpperBound() != 0.005 || b.GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket %v", b)
	}
}

func TestHistogramOmittedWhenLatencyDisabled(t *testing.T) {
	families := gather(t, fakeSource{
		snapshot: storeAuth.MetricsSnapshot{
			Counters:   map[storeAuth.MetricID]uint64{},
			Histograms: map[storeAuth.MetricID][]uint64{},
		},
	})
	if _, ok := families["storeauth_validate_latency_seconds"]; ok {
		t.Fatal("histogram must be absent without latency data")
	}
	if _, ok := families["storeauth_login_success_total"]; !ok {
		t.Fatal("counters are always exported")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: storeAuth.MetricsSnapshot{
			Counters:   map[storeAuth.MetricID]uint64{storeAuth.MetricLoginSuccess: 1},
			Histograms: map[storeAuth.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storeauth_login_success_total 1") {
		t.Fatalf("expected counter in exposition, got:\n%s", rec.Body.String())
	}
}

func BenchmarkCollect(b *testing.B) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewExporterFromSource(fakeSource{
		snapshot: storeAuth.MetricsSnapshot{
			Counters: map[storeAuth.MetricID]uint64{
				storeAuth.MetricLoginSuccess:   1000,
				storeAuth.MetricLoginFailure:   40,
				storeAuth.MetricRefreshSuccess: 800,
			},
			Histograms: map[storeAuth.MetricID][]uint64{
				storeAuth.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	}))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
