package storeAuth

import (
	internalmetrics "github.com/MrEthical07/storeAuth/internal/metrics"
)

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts failed logins after the lockout gate.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginLocked counts logins rejected because the client is locked.
	MetricLoginLocked = internalmetrics.MetricLoginLocked
	// MetricLockoutTriggered counts failures that set a new lock.
	MetricLockoutTriggered = internalmetrics.MetricLockoutTriggered
	// MetricRateLimitHit counts requests rejected by the rate limiter.
	MetricRateLimitHit = internalmetrics.MetricRateLimitHit
	// MetricRefreshSuccess counts access tokens minted by Refresh.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricValidateSuccess counts resolved identities.
	MetricValidateSuccess = internalmetrics.MetricValidateSuccess
	// MetricValidateFailure counts rejected access tokens and missing users.
	MetricValidateFailure = internalmetrics.MetricValidateFailure
	// MetricSessionCreated counts refresh sessions written at login.
	MetricSessionCreated = internalmetrics.MetricSessionCreated
	// MetricSessionRevoked counts single-session logouts.
	MetricSessionRevoked = internalmetrics.MetricSessionRevoked
	// MetricSessionIndexPruned counts logins that removed stale index entries.
	MetricSessionIndexPruned = internalmetrics.MetricSessionIndexPruned
	// MetricLogout counts Logout calls that completed.
	MetricLogout = internalmetrics.MetricLogout
	// MetricLogoutAll counts LogoutAll calls that completed.
	MetricLogoutAll = internalmetrics.MetricLogoutAll
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterDuplicate counts sign-ups for a taken email.
	MetricRegisterDuplicate = internalmetrics.MetricRegisterDuplicate
	// MetricRegisterRateLimited counts throttled sign-ups.
	MetricRegisterRateLimited = internalmetrics.MetricRegisterRateLimited
	// MetricInternalError counts failures masked as ErrInternal.
	MetricInternalError = internalmetrics.MetricInternalError
	// MetricValidateLatency is the Validate latency histogram.
	MetricValidateLatency = internalmetrics.MetricValidateLatency
)

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot = internalmetrics.Snapshot

// HistBucketCount is the number of latency histogram buckets.
const HistBucketCount = internalmetrics.HistBucketCount
