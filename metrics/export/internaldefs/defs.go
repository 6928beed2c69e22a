package internaldefs

import (
	storeAuth "github.com/MrEthical07/storeAuth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   storeAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   storeAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the exported name of the dispatcher drop counter.
const AuditDroppedName = "storeauth_audit_dropped_total"

// CounterDefs lists every exported counter in a fixed order.
var CounterDefs = []CounterDef{
	{ID: storeAuth.MetricLoginSuccess, Name: "storeauth_login_success_total", Help: "Successful logins."},
	{ID: storeAuth.MetricLoginFailure, Name: "storeauth_login_failure_total", Help: "Failed logins after the lockout gate."},
	{ID: storeAuth.MetricLoginLocked, Name: "storeauth_login_locked_total", Help: "Logins rejected because the client was locked."},
	{ID: storeAuth.MetricLockoutTriggered, Name: "storeauth_lockout_triggered_total", Help: "Failures that started a lockout."},
	{ID: storeAuth.MetricRateLimitHit, Name: "storeauth_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: storeAuth.MetricRefreshSuccess, Name: "storeauth_refresh_success_total", Help: "Access tokens minted by refresh."},
	{ID: storeAuth.MetricRefreshFailure, Name: "storeauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: storeAuth.MetricValidateSuccess, Name: "storeauth_validate_success_total", Help: "Access tokens resolved to an identity."},
	{ID: storeAuth.MetricValidateFailure, Name: "storeauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: storeAuth.MetricSessionCreated, Name: "storeauth_session_created_total", Help: "Refresh sessions created."},
	{ID: storeAuth.MetricSessionRevoked, Name: "storeauth_session_revoked_total", Help: "Refresh sessions revoked."},
	{ID: storeAuth.MetricSessionIndexPruned, Name: "storeauth_session_index_pruned_total", Help: "Logins that pruned stale session index entries."},
	{ID: storeAuth.MetricLogout, Name: "storeauth_logout_total", Help: "Single-session logouts."},
	{ID: storeAuth.MetricLogoutAll, Name: "storeauth_logout_all_total", Help: "Logout-all operations."},
	{ID: storeAuth.MetricRegisterSuccess, Name: "storeauth_register_success_total", Help: "Accounts created."},
	{ID: storeAuth.MetricRegisterDuplicate, Name: "storeauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: storeAuth.MetricRegisterRateLimited, Name: "storeauth_register_rate_limited_total", Help: "Registrations rejected by the throttle."},
	{ID: storeAuth.MetricInternalError, Name: "storeauth_internal_error_total", Help: "Backend failures masked as internal errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: storeAuth.MetricValidateLatency, Name: "storeauth_validate_latency_seconds", Help: "Validate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// without native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [storeAuth.HistBucketCount]uint64 {
	var out [storeAuth.HistBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [storeAuth.HistBucketCount]uint64) [storeAuth.HistBucketCount]uint64 {
	var out [storeAuth.HistBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
