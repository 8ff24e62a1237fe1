package velo

import (
	"context"
	"testing"

	"github.com/IronVelo/cs-velo-sdk/internal/velotest"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

// Username "bob123", password "Password1234!", TOTP-only setup,
// matching first guess.
func TestSignup_HappyPath(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	sealedToken := encodeTokenString([]byte("sealed-session-token"))

	d.On(routeSignup, func(body []byte) transport.Response {
		switch d.Calls(routeSignup) {
		case 1:
			return okResp(`{"username_exists":false}`, "p1")
		case 2:
			return okResp(`null`, "p2")
		case 3:
			return okResp(`{"setup_totp":"otpauth://totp/bob123"}`, "p3")
		case 4:
			return okResp(`null`, "p4")
		case 5:
			return okResp(`null`, sealedToken)
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeSignup))
			return transport.Response{}
		}
	})

	client := newTestClient(d)

	setPassword, fatal := client.Signup(ctx, "bob123").Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if setPassword.IsErr() {
		t.Fatalf("signup rejected: username should not exist")
	}

	password, err := ParsePassword("Password1234!")
	if err != nil {
		t.Fatalf("ParsePassword: %v", err)
	}
	setupFirst := setPassword.Unwrap().Submit(ctx, client, password)

	verifyTotp := setupFirst.Totp(ctx, client)
	if verifyTotp.URI() == nil || *verifyTotp.URI() != "otpauth://totp/bob123" {
		t.Fatalf("expected provisioning URI on first TOTP setup attempt")
	}

	code, _ := ParseTotp("12345678")
	afterVerify := verifyTotp.Guess(ctx, client, code)
	if afterVerify.IsErr() {
		t.Fatalf("expected successful TOTP verification, got retry: %+v", afterVerify.UnwrapErr())
	}

	already := afterVerify.Unwrap().AlreadySetup()
	if len(already) != 1 || already[0] != MfaTotp {
		t.Fatalf("already-setup set wrong: %+v", already)
	}

	token := afterVerify.Unwrap().Finish(ctx, client)
	_ = token // terminal Token; affine, consumed by the caller's next operation
}

// Setting up a second MFA method must grow the already-configured set
// rather than replace it.
func TestSignup_SecondMfaGrowsAlreadySetup(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()

	d.On(routeSignup, func(body []byte) transport.Response {
		switch d.Calls(routeSignup) {
		case 1:
			return okResp(`{"username_exists":false}`, "p1")
		case 2:
			return okResp(`null`, "p2")
		case 3:
			return okResp(`{"setup_totp":"otpauth://totp/bob123"}`, "p3")
		case 4:
			return okResp(`null`, "p4")
		case 5: // setup_mfa for Sms
			return okResp(`null`, "p5")
		case 6: // verify_simple_otp
			return okResp(`null`, "p6")
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeSignup))
			return transport.Response{}
		}
	})

	client := newTestClient(d)
	setPassword, _ := client.Signup(ctx, "bob123").Await(ctx)
	password, _ := ParsePassword("Password1234!")
	setupFirst := setPassword.Unwrap().Submit(ctx, client, password)

	code, _ := ParseTotp("12345678")
	afterTotp := setupFirst.Totp(ctx, client).Guess(ctx, client, code).Unwrap()

	otp, _ := ParseSimpleOtp("123456")
	afterSms := afterTotp.Sms(ctx, client, "+15005550006").Guess(ctx, client, otp).Unwrap()

	already := afterSms.AlreadySetup()
	if len(already) != 2 || !containsKind(already, MfaTotp) || !containsKind(already, MfaSms) {
		t.Fatalf("already-setup set should hold both kinds, got %+v", already)
	}
}

func TestSignup_UsernameAlreadyExists(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()
	d.On(routeSignup, func(body []byte) transport.Response {
		return okResp(`{"username_exists":true}`, "")
	})

	client := newTestClient(d)
	setPassword, fatal := client.Signup(ctx, "bob123").Await(ctx)
	if fatal != nil {
		t.Fatalf("unexpected fatal error: %v", fatal)
	}
	if !setPassword.IsErr() {
		t.Fatalf("expected UsernameAlreadyExistsError")
	}
}

func TestSignup_TotpRetryCarriesNoURI(t *testing.T) {
	ctx := context.Background()
	d := velotest.NewFakeDispatcher()

	d.On(routeSignup, func(body []byte) transport.Response {
		switch d.Calls(routeSignup) {
		case 1:
			return okResp(`{"username_exists":false}`, "p1")
		case 2:
			return okResp(`null`, "p2")
		case 3:
			return okResp(`{"setup_totp":"otpauth://totp/bob123"}`, "p3")
		case 4:
			return okResp(`{"maybe_retry_totp":true}`, "p4")
		default:
			t.Fatalf("unexpected call %d", d.Calls(routeSignup))
			return transport.Response{}
		}
	})

	client := newTestClient(d)
	setPassword, _ := client.Signup(ctx, "bob123").Await(ctx)
	password, _ := ParsePassword("Password1234!")
	setupFirst := setPassword.Unwrap().Submit(ctx, client, password)
	verifyTotp := setupFirst.Totp(ctx, client)

	wrong, _ := ParseTotp("00000000")
	retry := verifyTotp.Guess(ctx, client, wrong)
	if !retry.IsErr() {
		t.Fatalf("expected retry on wrong TOTP code")
	}
	if retry.UnwrapErr().URI() != nil {
		t.Fatalf("retry state must not carry a provisioning URI")
	}
}
