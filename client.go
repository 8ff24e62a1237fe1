package velo

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

// The fixed set of IdP endpoints.
const (
	routeSignup   = "signup"
	routeLogin    = "login"
	routeRefresh  = "refresh"
	routeRevoke   = "revoke"
	routeHealth   = "health"
	routeDelete   = "delete"
	routeMLogin   = "mLogin"
	routeUpMfa    = "upMfa"
	routeRecovery = "recovery"
)

// Client is a process-wide handle bound to a host and port. It is
// shared-immutable after construction and safe to use concurrently
// from many independently progressing flow instances; it never itself
// holds flow state.
type Client struct {
	dispatcher transport.Dispatcher
	logger     kitlog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger configures the client with a structured logger. Defaults
// to a no-op logger; the SDK never logs permits, tokens, passwords, or
// OTP codes.
func WithLogger(l kitlog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDispatcher overrides the default HTTP/2 dispatcher, primarily
// for tests (see internal/velotest.FakeDispatcher).
func WithDispatcher(d transport.Dispatcher) ClientOption {
	return func(c *Client) {
		c.dispatcher = d
	}
}

// NewClient constructs a Client bound to host:port. No environment
// variables are consumed; all configuration is supplied by the caller
// through host, port, and options.
func NewClient(host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		dispatcher: transport.NewHTTP2Dispatcher(host, port),
		logger:     kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call dispatches one envelope-wrapped request and interprets its
// response. It is the single choke point every flow transition passes
// through, so request-id stamping and logging happen exactly once per
// IdP call.
func (c *Client) call(ctx context.Context, route string, args interface{}, permit *string) (envelope.Decoded, *RequestError) {
	reqID := uuid.NewString()
	ctx = transport.WithRequestID(ctx, reqID)

	body, reqErr := envelope.Build(args, permit)
	if reqErr != nil {
		reqErr.RequestID = reqID
		return envelope.Decoded{}, reqErr
	}

	resp, err := c.dispatcher.Dispatch(ctx, route, body)
	if err != nil {
		level.Error(c.logger).Log("msg", "dispatch failed", "route", route, "request_id", reqID, "err", err)
		return envelope.Decoded{}, &RequestError{Kind: KindInternal, Msg: err.Error(), RequestID: reqID}
	}

	decoded, reqErr := envelope.Decode(resp.Status, resp.Body)
	if reqErr != nil {
		reqErr.RequestID = reqID
		level.Error(c.logger).Log("msg", "request failed", "route", route, "request_id", reqID, "status", resp.Status, "kind", reqErr.Kind)
		return envelope.Decoded{}, reqErr
	}

	level.Debug(c.logger).Log("msg", "request ok", "route", route, "request_id", reqID, "status", resp.Status)
	return decoded, nil
}

// callRaw dispatches a raw (non-enveloped) request, used for the token
// endpoints (refresh, revoke) which send the sealed token directly as
// the body.
func (c *Client) callRaw(ctx context.Context, route string, body []byte) ([]byte, *RequestError) {
	reqID := uuid.NewString()
	ctx = transport.WithRequestID(ctx, reqID)

	resp, err := c.dispatcher.DispatchRaw(ctx, route, body)
	if err != nil {
		level.Error(c.logger).Log("msg", "dispatch failed", "route", route, "request_id", reqID, "err", err)
		return nil, &RequestError{Kind: KindInternal, Msg: err.Error(), RequestID: reqID}
	}

	if reqErr := envelope.InterpretStatus(resp.Status); reqErr != nil {
		reqErr.RequestID = reqID
		level.Error(c.logger).Log("msg", "request failed", "route", route, "request_id", reqID, "status", resp.Status)
		return nil, reqErr
	}

	level.Debug(c.logger).Log("msg", "request ok", "route", route, "request_id", reqID, "status", resp.Status)
	return resp.Body, nil
}

// OpaqueError is returned by CheckToken on failure. It deliberately
// carries no detail, preventing information leaks to a potentially
// malicious client.
type OpaqueError struct{}

func (OpaqueError) Error() string { return "velo: token check failed" }

type checkTokenRet struct {
	UserID   string `json:"user_id"`
	NewToken Token  `json:"new_token"`
}

// CheckToken verifies a Token and, in the same call, rotates it (the
// "peek" operation). The passed-in token is consumed regardless of
// outcome; on success, callers must use PeekedToken.NewToken for any
// subsequent request.
func (c *Client) CheckToken(token Token) result.FutureResult[PeekedToken, OpaqueError] {
	sealed := token.consume()
	return result.Go(func(ctx context.Context) result.Result[PeekedToken, OpaqueError] {
		body, reqErr := c.callRaw(ctx, routeRefresh, sealed)
		if reqErr != nil {
			return result.Err[PeekedToken, OpaqueError](OpaqueError{})
		}

		ret, decErr := envelope.DecodeRet[checkTokenRet](body)
		if decErr != nil {
			return result.Err[PeekedToken, OpaqueError](OpaqueError{})
		}

		return result.Ok[PeekedToken, OpaqueError](PeekedToken{UserID: ret.UserID, NewToken: ret.NewToken})
	})
}

type revokeRet struct {
	ReplacementToken *Token `json:"replacement_token"`
}

// RevokeTokens revokes every session for the user identified by
// token. On success there is no replacement (every session is dead).
// On failure the response may carry a replacement token, which the
// caller must use for a retry.
func (c *Client) RevokeTokens(token Token) result.FutureResult[struct{}, *Token] {
	sealed := token.consume()
	return result.Go(func(ctx context.Context) result.Result[struct{}, *Token] {
		body, reqErr := c.callRaw(ctx, routeRevoke, sealed)
		if reqErr != nil {
			return result.Err[struct{}, *Token](nil)
		}

		if len(body) == 0 {
			return result.Ok[struct{}, *Token](struct{}{})
		}

		ret, decErr := envelope.DecodeRet[revokeRet](body)
		if decErr != nil || ret.ReplacementToken == nil {
			return result.Err[struct{}, *Token](nil)
		}
		return result.Err[struct{}, *Token](ret.ReplacementToken)
	})
}

// IsHealthy probes the IdP's health route with a caller-supplied
// timeout. It is the only operation besides construction that accepts
// its own timeout; every other call relies on the transport's own
// timeout configuration.
func (c *Client) IsHealthy(timeout time.Duration) result.FutureResult[bool, RequestError] {
	return result.Go(func(ctx context.Context) result.Result[bool, RequestError] {
		ok, err := c.dispatcher.Healthy(ctx, timeout)
		if err != nil {
			return result.Err[bool, RequestError](RequestError{Kind: KindInternal, Msg: err.Error()})
		}
		return result.Ok[bool, RequestError](ok)
	})
}

// Close releases any idle resources held by the underlying transport,
// when it supports doing so. Long-lived consumers should call it on
// shutdown rather than relying on finalizers to collect pooled
// connections.
func (c *Client) Close() {
	if closer, ok := c.dispatcher.(interface{ Close() }); ok {
		closer.Close()
	}
}
