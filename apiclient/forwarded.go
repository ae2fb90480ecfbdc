package apiclient

import (
	"context"
	"net/http"
)

type contextKey string

const forwardedHostKey contextKey = "forwarded_host"

// WithForwardedHost records the inbound request's host so every backend call
// made with ctx carries it. The backend resolves tenants by hostname.
func WithForwardedHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, forwardedHostKey, host)
}

// ForwardedHost returns the host stored by WithForwardedHost, if any.
func ForwardedHost(ctx context.Context) string {
	host, _ := ctx.Value(forwardedHostKey).(string)
	return host
}

// ForwardedHostMiddleware stores r.Host on the request context.
func ForwardedHostMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(WithForwardedHost(r.Context(), r.Host)))
	}
}
