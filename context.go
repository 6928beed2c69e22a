package storeAuth

import "context"

// UnknownClient is the client identifier used when none was attached.
const UnknownClient = "unknown"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's client identifier to ctx. The Engine
// keys lockout accounting, registration throttling and audit events on it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the identifier attached by WithClientIP, or
// UnknownClient.
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return UnknownClient
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	if ip == "" {
		return UnknownClient
	}
	return ip
}
