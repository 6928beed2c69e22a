package middleware

import (
	"net"
	"net/http"
	"strings"

	storeAuth "github.com/MrEthical07/storeAuth"
)

// ClientIP resolves the caller's identifier. Behind a trusted proxy it uses
// the leftmost X-Forwarded-For entry, then X-Real-IP. Otherwise it uses the
// connection's remote host. Unresolvable requests map to
// [storeAuth.UnknownClient].
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		return storeAuth.UnknownClient
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host = strings.TrimSpace(host); host == "" {
		return storeAuth.UnknownClient
	}
	return host
}

// ClientID attaches the result of [ClientIP] to the request context.
func ClientID(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := storeAuth.WithClientIP(r.Context(), ClientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
