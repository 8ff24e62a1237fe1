package transport

import "context"

type requestIDKey struct{}

// WithRequestID attaches a correlation id to ctx. The default
// HTTP2Dispatcher forwards it as the X-Velo-Request-Id header so
// client-side logs can be correlated with the IdP's own.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext retrieves a correlation id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
