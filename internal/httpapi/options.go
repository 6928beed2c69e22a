package httpapi

import (
	"time"

	"github.com/MrEthical07/storeAuth/internal/config"
)

// Options tune the router. The zero value is usable in tests: no body limit,
// no timeout, no CORS origins, proxy headers ignored.
type Options struct {
	BodyLimit          int64
	Timeout            time.Duration
	CORSAllowedOrigins []string
	TrustProxy         bool
	HTTPSRedirect      bool
	// Production enables HSTS.
	Production bool
	// SecureCookie sets the Secure flag on the refresh cookie.
	SecureCookie bool
}

// OptionsFromConfig derives router options from the service config. The
// refresh cookie is Secure everywhere except development.
func OptionsFromConfig(cfg config.Config) Options {
	env := cfg.Env()
	return Options{
		BodyLimit:          cfg.Server.BodyLimit,
		Timeout:            cfg.RequestTimeout(),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		TrustProxy:         cfg.Server.TrustProxy,
		HTTPSRedirect:      cfg.Server.HTTPSRedirect,
		Production:         cfg.IsProduction(),
		SecureCookie:       env != config.Development,
	}
}
