// Package transport defines the dispatcher surface the SDK core
// depends on and provides a default HTTP/2 implementation of it.
package transport

import (
	"context"
	"time"
)

// Response is the raw outcome of dispatching one request: the
// transport's HTTP status code and the response body, undecoded.
type Response struct {
	Status int
	Body   []byte
}

// Dispatcher sends a JSON body to a route and returns the resulting
// status and body. Implementations are free to apply their own
// timeout if one isn't supplied through ctx.
type Dispatcher interface {
	// Dispatch POSTs body to <base>/<route> and returns the response.
	Dispatch(ctx context.Context, route string, body []byte) (Response, error)

	// DispatchRaw POSTs a raw (non-JSON-wrapped) body, used for the
	// token endpoints (refresh, revoke) which take the sealed token
	// directly as the request body.
	DispatchRaw(ctx context.Context, route string, body []byte) (Response, error)

	// Healthy probes the health route with the given timeout.
	Healthy(ctx context.Context, timeout time.Duration) (bool, error)
}
