package velo

import (
	"context"
	"testing"

	"github.com/IronVelo/cs-velo-sdk/internal/velotest"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

func TestLogin_HappyPath(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	sealedToken := encodeTokenString([]byte("sealed-session-token"))

	d.On(routeLogin, func(body []byte) transport.Response {
		switch d.Calls(routeLogin) {
		case 1:
			return okResp(`{"hello_login":["Totp"]}`, "p1")
		case 2:
			return okResp(`null`, "p2")
		case 3:
			return okResp(`null`, sealedToken)
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeLogin))
			return transport.Response{}
		}
	})

	client := newTestClient(d)
	password, err := ParsePassword("Password1234!")
	if err != nil {
		t.Fatalf("ParsePassword: %v", err)
	}

	initMfa, fatal := client.Login(ctx, "bob123", password).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if initMfa.IsErr() {
		t.Fatalf("Login rejected: %v", initMfa.UnwrapErr())
	}

	verify := initMfa.Unwrap().Totp(ctx, client)
	if verify.IsErr() {
		t.Fatalf("Totp() reported unavailable")
	}

	code, err := ParseTotp("12345678")
	if err != nil {
		t.Fatalf("ParseTotp: %v", err)
	}

	final := verify.Unwrap().Guess(ctx, client, code)
	if final.IsErr() {
		t.Fatalf("expected successful login, got retry state: %+v", final.UnwrapErr())
	}
}

func TestLogin_WrongTotpThenRight(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	sealedToken := encodeTokenString([]byte("sealed-session-token"))

	d.On(routeLogin, func(body []byte) transport.Response {
		switch d.Calls(routeLogin) {
		case 1:
			return okResp(`{"hello_login":["Totp"]}`, "p1")
		case 2:
			return okResp(`null`, "p2")
		case 3:
			// wrong guess: retry
			return okResp(`{"retry_init_mfa":["Totp"]}`, "p3")
		case 4:
			return okResp(`null`, "p4")
		case 5:
			return okResp(`null`, sealedToken)
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeLogin))
			return transport.Response{}
		}
	})

	client := newTestClient(d)
	password, _ := ParsePassword("Password1234!")

	initMfa, _ := client.Login(ctx, "bob123", password).Await(ctx)
	verify := initMfa.Unwrap().Totp(ctx, client).Unwrap()

	wrong, _ := ParseTotp("00000000")
	retry := verify.Guess(ctx, client, wrong)
	if !retry.IsErr() {
		t.Fatalf("expected retry state on wrong code")
	}
	retryState := retry.UnwrapErr()
	if len(retryState.Available()) != 1 || retryState.Available()[0] != MfaTotp {
		t.Fatalf("retry state lost available MFA kinds: %+v", retryState.Available())
	}

	reverify := retryState.Totp(ctx, client).Unwrap()
	right, _ := ParseTotp("12345678")
	final := reverify.Guess(ctx, client, right)
	if final.IsErr() {
		t.Fatalf("expected success on correct retry, got %+v", final.UnwrapErr())
	}
}

func TestLogin_UnavailableMfaKindRejectedClientSide(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.On(routeLogin, func(body []byte) transport.Response {
		return okResp(`{"hello_login":["Totp"]}`, "p1")
	})

	client := newTestClient(d)
	password, _ := ParsePassword("Password1234!")
	initMfa, _ := client.Login(ctx, "bob123", password).Await(ctx)

	// Sms isn't in the available set; this must not perform a second
	// round trip.
	r := initMfa.Unwrap().Sms(ctx, client)
	if !r.IsErr() {
		t.Fatalf("expected Sms() to be rejected client-side")
	}
	if d.Calls(routeLogin) != 1 {
		t.Fatalf("Sms() should not have dispatched a request, got %d calls", d.Calls(routeLogin))
	}
}

func TestLogin_UsernameNotFound(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.On(routeLogin, func(body []byte) transport.Response {
		return okResp(`{"failure":"UsernameNotFound"}`, "")
	})

	client := newTestClient(d)
	password, _ := ParsePassword("Password1234!")
	initMfa, fatal := client.Login(ctx, "ghost", password).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if !initMfa.IsErr() {
		t.Fatalf("expected LoginError for unknown username")
	}
	if initMfa.UnwrapErr().Reason != FailureUsernameNotFound {
		t.Fatalf("wrong failure reason: %v", initMfa.UnwrapErr().Reason)
	}
}
