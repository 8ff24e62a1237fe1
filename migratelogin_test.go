package velo

import (
	"context"
	"testing"

	"github.com/IronVelo/cs-velo-sdk/internal/velotest"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

func TestMigrateLogin_HappyPath(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	sealedToken := encodeTokenString([]byte("sealed-session-token"))

	d.On(routeMLogin, func(body []byte) transport.Response {
		switch d.Calls(routeMLogin) {
		case 1:
			return okResp(`{"hello_login":{}}`, "p1")
		case 2:
			return okResp(`{"setup_totp":"otpauth://totp/bob123"}`, "p2")
		case 3:
			return okResp(`null`, "p3")
		case 4:
			return okResp(`null`, sealedToken)
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeMLogin))
			return transport.Response{}
		}
	})

	client := newTestClient(d)
	password, _ := ParsePassword("OldPassword1!")

	setupFirst, fatal := client.MigrateLogin(ctx, "legacyuser", password).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if setupFirst.IsErr() {
		t.Fatalf("migratelogin rejected: %+v", setupFirst.UnwrapErr())
	}

	verifyTotp := setupFirst.Unwrap().Totp(ctx, client)
	code, _ := ParseTotp("12345678")
	afterVerify := verifyTotp.Guess(ctx, client, code)
	if afterVerify.IsErr() {
		t.Fatalf("expected success, got retry: %+v", afterVerify.UnwrapErr())
	}

	token := afterVerify.Unwrap().Login(ctx, client)
	_ = token
}

func TestMigrateLogin_WrongFlow(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.On(routeMLogin, func(body []byte) transport.Response {
		return okResp(`{"failure":"WrongFlow"}`, "")
	})

	client := newTestClient(d)
	password, _ := ParsePassword("OldPassword1!")
	setupFirst, fatal := client.MigrateLogin(ctx, "already-migrated", password).Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if !setupFirst.IsErr() || setupFirst.UnwrapErr().Reason != FailureWrongFlow {
		t.Fatalf("expected WrongFlow failure, got %+v", setupFirst)
	}
}
