package security

import "time"

// RecommendedArgon2Memory is the memory floor, in KiB, below which the report
// warns.
const RecommendedArgon2Memory = 64 * 1024

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	ProductionMode          bool
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	Leeway                  time.Duration
	Argon2                  PasswordReport
	RefreshRotationEnabled  bool // always false: refresh tokens are not rotated
	RateLimitingActive      bool
	LockoutActive           bool
	RegisterThrottleActive  bool
	IndexPruningActive      bool
	AuditActive             bool
	MetricsActive           bool
	ForwardedHeadersTrusted bool
	Warnings                []string
}

type ReportInput struct {
	ProductionMode    bool
	SigningAlgorithm  string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Leeway            time.Duration
	Password          PasswordReport
	RateLimitEnabled  bool
	MaxRequests       int
	RateWindow        time.Duration
	LockoutEnabled    bool
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	RegisterThrottle  bool
	PruneOnLogin      bool
	AuditEnabled      bool
	MetricsEnabled    bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		ProductionMode:         input.ProductionMode,
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		Leeway:                 input.Leeway,
		Argon2:                 input.Password,
		RateLimitingActive:     input.RateLimitEnabled && input.MaxRequests > 0 && input.RateWindow > 0,
		LockoutActive:          input.LockoutEnabled && input.MaxFailedAttempts > 0 && input.LockoutDuration > 0,
		RegisterThrottleActive: input.RegisterThrottle,
		IndexPruningActive:     input.PruneOnLogin,
		AuditActive:            input.AuditEnabled,
		MetricsActive:          input.MetricsEnabled,
	}

	r.Warnings = append(r.Warnings, "refresh tokens are not rotated; a leaked token is usable until it expires or is revoked")
	if !r.RateLimitingActive {
		r.Warnings = append(r.Warnings, "rate limiting is disabled")
	}
	if !r.LockoutActive {
		r.Warnings = append(r.Warnings, "login lockout is disabled")
	}
	if !r.RegisterThrottleActive {
		r.Warnings = append(r.Warnings, "registration throttle is inactive")
	}
	if input.Password.Memory < RecommendedArgon2Memory {
		r.Warnings = append(r.Warnings, "argon2 memory is below 64 MiB")
	}
	if !r.IndexPruningActive {
		r.Warnings = append(r.Warnings, "session index is never pruned; user_sessions sets grow until logout-all")
	}
	return r
}

// NoteProxyTrust records whether client identity comes from forwarding
// headers. When it does, a client reachable without the proxy can rotate
// X-Forwarded-For to dodge the rate limit and lockout, and requests that
// carry no header all share one "unknown" bucket.
func (r *Report) NoteProxyTrust(trusted bool) {
	r.ForwardedHeadersTrusted = trusted
	if trusted {
		r.Warnings = append(r.Warnings, "client ids are taken from X-Forwarded-For/X-Real-IP; expose the service only behind a proxy that overwrites them")
	}
}
