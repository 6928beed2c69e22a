package storeAuth

import "github.com/MrEthical07/storeAuth/internal/security"

// SecurityReport summarizes the protections an Engine runs with.
type SecurityReport = security.Report

// PasswordConfigReport is the Argon2 part of a [SecurityReport].
type PasswordConfigReport = security.PasswordReport

// SecurityReport derives the engine's effective hardening posture. It never
// exposes key material.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Leeway:           e.config.JWT.Leeway,
		Password: security.PasswordReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		RateLimitEnabled:  e.config.RateLimit.Enabled,
		MaxRequests:       e.config.RateLimit.MaxRequests,
		RateWindow:        e.config.RateLimit.Window,
		LockoutEnabled:    e.config.Lockout.Enabled,
		MaxFailedAttempts: e.config.Lockout.MaxFailedAttempts,
		LockoutDuration:   e.config.Lockout.Duration,
		RegisterThrottle:  e.registerLimiter != nil,
		PruneOnLogin:      e.config.Session.PruneOnLogin,
		AuditEnabled:      e.config.Audit.Enabled,
		MetricsEnabled:    e.config.Metrics.Enabled,
	})
}
