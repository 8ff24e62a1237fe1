package velo

import (
	"context"
	"fmt"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// --- ingress -----------------------------------------------------------

type helloLoginArgs struct {
	HelloLogin struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"hello_login"`
}

type helloLoginRet struct {
	HelloLogin *[]MfaKind   `json:"hello_login"`
	Failure    *LoginFailure `json:"failure"`
}

// Login starts the login flow for username/password. On success, the
// returned LoginInitMfa lists every MFA kind the IdP will accept for
// this user.
func (c *Client) Login(ctx context.Context, username string, password Password) result.FutureResult[LoginInitMfa, LoginError] {
	return result.Go(func(ctx context.Context) result.Result[LoginInitMfa, LoginError] {
		var args helloLoginArgs
		args.HelloLogin.Username = username
		args.HelloLogin.Password = password.Expose()

		decoded, reqErr := c.call(ctx, routeLogin, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[helloLoginRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		either, reqErr := envelope.ToResult(ret.HelloLogin, ret.Failure)
		if reqErr != nil {
			panic(reqErr)
		}
		return result.MapErr(result.Map(either, func(available []MfaKind) LoginInitMfa {
			return LoginInitMfa{permit: permitOf(decoded.Permit), available: available}
		}), func(f LoginFailure) LoginError {
			return LoginError{Reason: f}
		})
	})
}

func permitOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func permitPtr(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}

// --- InitMfa / RetryInitMfa ---------------------------------------------

// LoginInitMfa is the state reached immediately after a successful
// Login call: the caller must pick an available MFA kind to continue.
type LoginInitMfa struct {
	permit    string
	available []MfaKind
}

// LoginRetryInitMfa is reached after any VerifyMfa/VerifyTotp failure.
// It has the same shape and operations as LoginInitMfa but a distinct
// stage tag, so the IdP may enforce different policy (e.g. attempt
// counting) on retries.
type LoginRetryInitMfa struct {
	permit    string
	available []MfaKind
}

// Available returns the MFA kinds the IdP will accept.
func (s LoginInitMfa) Available() []MfaKind { return s.available }

// Available returns the MFA kinds the IdP will accept.
func (s LoginRetryInitMfa) Available() []MfaKind { return s.available }

type initMfaArgs struct {
	Kind MfaKind `json:"kind"`
}

// selectMfa is the shared implementation backing InitMfa/RetryInitMfa's
// Sms/Email/Totp methods: request the IdP start verification of kind,
// after a local guard confirming kind is in the available set.
func selectMfa(
	ctx context.Context,
	c *Client,
	route string,
	permit string,
	available []MfaKind,
	kind MfaKind,
	onUnavailable func() result.Result[MfaTransition, LoginRetryInitMfa],
) result.Result[MfaTransition, LoginRetryInitMfa] {
	if !containsKind(available, kind) {
		return onUnavailable()
	}

	decoded, reqErr := c.call(ctx, routeLogin, map[string]initMfaArgs{route: {Kind: kind}}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}

	return result.Ok[MfaTransition, LoginRetryInitMfa](MfaTransition{
		permit: permitOf(decoded.Permit),
		kind:   kind,
	})
}

// MfaTransition is an intermediate value carrying the permit and kind
// chosen by InitMfa/RetryInitMfa, resolved into LoginVerifyMfa or
// LoginVerifyTotp by the caller based on the requested kind.
type MfaTransition struct {
	permit string
	kind   MfaKind
}

// Sms requests SMS OTP verification. If Sms is not in the available
// set, it returns Err(self) unchanged without an IdP round trip, so
// the caller can try a different kind.
func (s LoginInitMfa) Sms(ctx context.Context, c *Client) result.Result[LoginVerifyMfa, LoginInitMfa] {
	return resolveVerifyMfa(selectMfaWithInit(ctx, c, "init_mfa", s, MfaSms))
}

// Email requests Email OTP verification.
func (s LoginInitMfa) Email(ctx context.Context, c *Client) result.Result[LoginVerifyMfa, LoginInitMfa] {
	return resolveVerifyMfa(selectMfaWithInit(ctx, c, "init_mfa", s, MfaEmail))
}

// Totp requests TOTP verification.
func (s LoginInitMfa) Totp(ctx context.Context, c *Client) result.Result[LoginVerifyTotp, LoginInitMfa] {
	r := selectMfaWithInit(ctx, c, "init_mfa", s, MfaTotp)
	if r.IsErr() {
		return result.Err[LoginVerifyTotp, LoginInitMfa](s)
	}
	t := r.Unwrap()
	return result.Ok[LoginVerifyTotp, LoginInitMfa](LoginVerifyTotp{permit: t.permit})
}

func selectMfaWithInit(ctx context.Context, c *Client, route string, s LoginInitMfa, kind MfaKind) result.Result[MfaTransition, LoginInitMfa] {
	var zero LoginRetryInitMfa
	r := selectMfa(ctx, c, route, s.permit, s.available, kind, func() result.Result[MfaTransition, LoginRetryInitMfa] {
		return result.Err[MfaTransition, LoginRetryInitMfa](zero)
	})
	if r.IsErr() {
		return result.Err[MfaTransition, LoginInitMfa](s)
	}
	return result.Ok[MfaTransition, LoginInitMfa](r.Unwrap())
}

func resolveVerifyMfa(r result.Result[MfaTransition, LoginInitMfa]) result.Result[LoginVerifyMfa, LoginInitMfa] {
	if r.IsErr() {
		return result.Err[LoginVerifyMfa, LoginInitMfa](r.UnwrapErr())
	}
	t := r.Unwrap()
	return result.Ok[LoginVerifyMfa, LoginInitMfa](LoginVerifyMfa{permit: t.permit, kind: t.kind})
}

// Sms requests SMS OTP verification from a retry state.
func (s LoginRetryInitMfa) Sms(ctx context.Context, c *Client) result.Result[LoginVerifyMfa, LoginRetryInitMfa] {
	return selectMfaRetry(ctx, c, s, MfaSms)
}

// Email requests Email OTP verification from a retry state.
func (s LoginRetryInitMfa) Email(ctx context.Context, c *Client) result.Result[LoginVerifyMfa, LoginRetryInitMfa] {
	return selectMfaRetry(ctx, c, s, MfaEmail)
}

// Totp requests TOTP verification from a retry state.
func (s LoginRetryInitMfa) Totp(ctx context.Context, c *Client) result.Result[LoginVerifyTotp, LoginRetryInitMfa] {
	r := selectMfa(ctx, c, "retry_init_mfa", s.permit, s.available, MfaTotp, func() result.Result[MfaTransition, LoginRetryInitMfa] {
		return result.Err[MfaTransition, LoginRetryInitMfa](s)
	})
	if r.IsErr() {
		return result.Err[LoginVerifyTotp, LoginRetryInitMfa](s)
	}
	t := r.Unwrap()
	return result.Ok[LoginVerifyTotp, LoginRetryInitMfa](LoginVerifyTotp{permit: t.permit})
}

func selectMfaRetry(ctx context.Context, c *Client, s LoginRetryInitMfa, kind MfaKind) result.Result[LoginVerifyMfa, LoginRetryInitMfa] {
	r := selectMfa(ctx, c, "retry_init_mfa", s.permit, s.available, kind, func() result.Result[MfaTransition, LoginRetryInitMfa] {
		return result.Err[MfaTransition, LoginRetryInitMfa](s)
	})
	if r.IsErr() {
		return result.Err[LoginVerifyMfa, LoginRetryInitMfa](r.UnwrapErr())
	}
	t := r.Unwrap()
	return result.Ok[LoginVerifyMfa, LoginRetryInitMfa](LoginVerifyMfa{permit: t.permit, kind: t.kind})
}

// --- VerifyMfa / VerifyTotp ----------------------------------------------

// LoginVerifyMfa awaits an SMS/Email OTP guess.
type LoginVerifyMfa struct {
	permit string
	kind   MfaKind
}

// LoginVerifyTotp awaits a TOTP guess.
type LoginVerifyTotp struct {
	permit string
}

type guessArgs struct {
	Guess string `json:"guess"`
}

type guessRet struct {
	RetryInitMfa *[]MfaKind `json:"retry_init_mfa"`
}

// Guess verifies otp. On success it returns the session Token
// (terminal). On an incorrect code it returns a fresh
// LoginRetryInitMfa so the caller can try a different kind without
// restarting the flow.
func (s LoginVerifyMfa) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[Token, LoginRetryInitMfa] {
	decoded, reqErr := c.call(ctx, routeLogin, map[string]guessArgs{"verify_simple_otp": {Guess: otp.Expose()}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return resolveGuessResult(decoded)
}

// Guess verifies code. Same success/retry protocol as LoginVerifyMfa.Guess.
func (s LoginVerifyTotp) Guess(ctx context.Context, c *Client, code Totp) result.Result[Token, LoginRetryInitMfa] {
	decoded, reqErr := c.call(ctx, routeLogin, map[string]guessArgs{"verify_totp": {Guess: code.Expose()}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return resolveGuessResult(decoded)
}

func resolveGuessResult(decoded envelope.Decoded) result.Result[Token, LoginRetryInitMfa] {
	if len(decoded.Ret) == 0 || string(decoded.Ret) == "{}" || string(decoded.Ret) == "null" {
		return result.Ok[Token, LoginRetryInitMfa](NewToken(mustDecodeTokenPermit(decoded.Permit)))
	}

	ret, reqErr := envelope.DecodeRet[guessRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.RetryInitMfa != nil {
		return result.Err[Token, LoginRetryInitMfa](LoginRetryInitMfa{
			permit:    permitOf(decoded.Permit),
			available: *ret.RetryInitMfa,
		})
	}
	panic(envelope.ErrDeserialization("login verify response carried neither ok nor retry_init_mfa"))
}

// mustDecodeTokenPermit treats the rotated permit slot as the sealed
// session token on the terminal login/signup/migrate-login/ticket
// transitions, where the IdP repurposes the permit field to carry the
// new Token instead of a continuation permit.
func mustDecodeTokenPermit(permit *string) []byte {
	if permit == nil {
		panic(fmt.Errorf("velo: terminal transition returned no token"))
	}
	sealed, err := decodeTokenString(*permit)
	if err != nil {
		panic(err)
	}
	return sealed
}
