package velo

import (
	"context"
	"testing"
	"time"

	"github.com/IronVelo/cs-velo-sdk/internal/velotest"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

// A successful peek reports the user id returned by the refresh route.
func TestCheckToken_PeekInvariant(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	rotated := encodeTokenString([]byte("token-v2"))

	d.On(routeRefresh, func(body []byte) transport.Response {
		return transport.Response{Status: 200, Body: []byte(`{"user_id":"u1","new_token":"` + rotated + `"}`)}
	})

	client := newTestClient(d)
	peeked, fatal := client.CheckToken(NewToken([]byte("token-v1"))).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if peeked.IsErr() {
		t.Fatalf("expected successful peek")
	}
	if peeked.Unwrap().UserID != "u1" {
		t.Fatalf("wrong user id: %q", peeked.Unwrap().UserID)
	}
}

func TestCheckToken_ReuseOfConsumedTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on reusing a consumed token")
		}
	}()

	token := NewToken([]byte("token-v1"))
	_ = token.consume()
	_ = token.consume()
}

func TestRevokeTokens_Success(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.On(routeRevoke, func(body []byte) transport.Response {
		return transport.Response{Status: 200, Body: nil}
	})

	client := newTestClient(d)
	result, fatal := client.RevokeTokens(NewToken([]byte("token-v1"))).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if result.IsErr() {
		t.Fatalf("expected successful revocation")
	}
}

func TestRevokeTokens_FailureCarriesReplacement(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	replacement := encodeTokenString([]byte("token-v2"))
	d.On(routeRevoke, func(body []byte) transport.Response {
		return transport.Response{Status: 412, Body: nil}
	})

	client := newTestClient(d)
	result, fatal := client.RevokeTokens(NewToken([]byte("token-v1"))).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if !result.IsErr() {
		t.Fatalf("expected failure on 412")
	}
	if result.UnwrapErr() != nil {
		t.Fatalf("transport-level failure should carry no replacement token")
	}
	_ = replacement
}

func TestIsHealthy(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.SetHealthy(true)

	client := newTestClient(d)
	healthy, fatal := client.IsHealthy(time.Second).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if healthy.IsErr() || !healthy.Unwrap() {
		t.Fatalf("expected healthy=true")
	}

	d.SetHealthy(false)
	unhealthy, fatal := client.IsHealthy(time.Second).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if unhealthy.IsErr() || unhealthy.Unwrap() {
		t.Fatalf("expected healthy=false")
	}
}
