package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// HTTP2Dispatcher is the default Dispatcher, backed by an HTTP/2
// client transport. It is shared-immutable once constructed, so a
// single instance may be used concurrently by many flow instances.
type HTTP2Dispatcher struct {
	baseURL     string
	client      *http.Client
	h2Transport *http2.Transport
}

// Option configures an HTTP2Dispatcher.
type Option func(*HTTP2Dispatcher)

// WithTimeout sets the client's overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTP2Dispatcher) {
		c.client.Timeout = d
	}
}

// WithDialTimeout bounds how long the underlying TCP+TLS handshake may
// take before a request is abandoned.
func WithDialTimeout(d time.Duration) Option {
	return func(c *HTTP2Dispatcher) {
		c.h2Transport.DialTLSContext = func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: d}
			return tls.DialWithDialer(dialer, network, addr, cfg)
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Only
// intended for talking to a local IdP instance in development/tests.
func WithInsecureSkipVerify() Option {
	return func(c *HTTP2Dispatcher) {
		c.h2Transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- dev/test opt-in only
	}
}

// NewHTTP2Dispatcher constructs a Dispatcher against host:port.
func NewHTTP2Dispatcher(host string, port int, opts ...Option) *HTTP2Dispatcher {
	h2t := &http2.Transport{}

	d := &HTTP2Dispatcher{
		baseURL:     fmt.Sprintf("https://%s:%d", host, port),
		client:      &http.Client{Transport: h2t, Timeout: 30 * time.Second},
		h2Transport: h2t,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Close releases pooled connections. Safe to call even if the
// dispatcher is still referenced elsewhere; it only affects idle
// connections.
func (d *HTTP2Dispatcher) Close() {
	d.h2Transport.CloseIdleConnections()
}

func (d *HTTP2Dispatcher) post(ctx context.Context, route string, body []byte) (Response, error) {
	url := d.baseURL + "/" + route

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Velo-Request-Id", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	return Response{Status: resp.StatusCode, Body: respBody}, nil
}

// Dispatch implements Dispatcher.
func (d *HTTP2Dispatcher) Dispatch(ctx context.Context, route string, body []byte) (Response, error) {
	return d.post(ctx, route, body)
}

// DispatchRaw implements Dispatcher.
func (d *HTTP2Dispatcher) DispatchRaw(ctx context.Context, route string, body []byte) (Response, error) {
	return d.post(ctx, route, body)
}

// Healthy implements Dispatcher.
func (d *HTTP2Dispatcher) Healthy(ctx context.Context, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.post(ctx, "health", nil)
	if err != nil {
		return false, err
	}
	return resp.Status == http.StatusOK, nil
}
