package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// --- ingress -------------------------------------------------------------

type helloSignupArgs struct {
	HelloSignup struct {
		Username string `json:"username"`
	} `json:"hello_signup"`
}

type helloSignupRet struct {
	UsernameExists *bool `json:"username_exists"`
}

// Signup starts the signup flow for username.
func (c *Client) Signup(ctx context.Context, username string) result.FutureResult[SignupSetPassword, UsernameAlreadyExistsError] {
	return result.Go(func(ctx context.Context) result.Result[SignupSetPassword, UsernameAlreadyExistsError] {
		var args helloSignupArgs
		args.HelloSignup.Username = username

		decoded, reqErr := c.call(ctx, routeSignup, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[helloSignupRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		if ret.UsernameExists != nil && *ret.UsernameExists {
			return result.Err[SignupSetPassword, UsernameAlreadyExistsError](UsernameAlreadyExistsError{})
		}
		return result.Ok[SignupSetPassword, UsernameAlreadyExistsError](SignupSetPassword{
			permit: permitOf(decoded.Permit),
		})
	})
}

// --- SetPassword -----------------------------------------------------------

// SignupSetPassword is the ingress state: the caller must supply a
// valid Password to continue.
type SignupSetPassword struct {
	permit string
}

type passwordArgs struct {
	Password struct {
		Password string `json:"password"`
	} `json:"password"`
}

// Submit sends the chosen password, transitioning to first MFA setup.
func (s SignupSetPassword) Submit(ctx context.Context, c *Client, password Password) SignupSetupFirstMfa {
	var args passwordArgs
	args.Password.Password = password.Expose()

	decoded, reqErr := c.call(ctx, routeSignup, args, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return SignupSetupFirstMfa{permit: permitOf(decoded.Permit)}
}

// --- SetupFirstMfa -----------------------------------------------------------

// SignupSetupFirstMfa is reached once a password is set; the caller
// picks the first MFA method to configure.
type SignupSetupFirstMfa struct {
	permit string
}

// Totp begins TOTP setup, returning a provisioning URI to render as a
// QR code alongside the verification state.
func (s SignupSetupFirstMfa) Totp(ctx context.Context, c *Client) SignupVerifyTotpSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_first_mfa", s.permit, MfaTotp, "")
	return SignupVerifyTotpSetup{permit: out.permit, uri: out.totpURI}
}

// Sms begins SMS OTP setup against phone.
func (s SignupSetupFirstMfa) Sms(ctx context.Context, c *Client, phone string) SignupVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_first_mfa", s.permit, MfaSms, phone)
	return SignupVerifyMfaSetup{permit: out.permit, kind: MfaSms}
}

// Email begins email OTP setup against addr.
func (s SignupSetupFirstMfa) Email(ctx context.Context, c *Client, addr string) SignupVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_first_mfa", s.permit, MfaEmail, addr)
	return SignupVerifyMfaSetup{permit: out.permit, kind: MfaEmail}
}

// --- VerifyMfaSetup (Sms/Email) ---------------------------------------------

// SignupVerifyMfaSetup awaits an SMS/Email OTP guess confirming the
// caller controls the address just configured. It carries the kinds
// verified in earlier loops so the set keeps growing across setups.
type SignupVerifyMfaSetup struct {
	permit  string
	kind    MfaKind
	already []MfaKind
}

// Kind returns which MFA method is being verified.
func (s SignupVerifyMfaSetup) Kind() MfaKind { return s.kind }

// Guess verifies otp. On success, transitions to NewMfaOrFinalize with
// kind added to the already-configured set; on an incorrect code,
// returns a fresh SignupVerifyMfaSetup for the same kind.
func (s SignupVerifyMfaSetup) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[SignupNewMfaOrFinalize, SignupVerifyMfaSetup] {
	ok, newPermit := requestVerifySimpleSetup(ctx, c, routeSignup, s.permit, otp)
	if !ok {
		return result.Err[SignupNewMfaOrFinalize, SignupVerifyMfaSetup](SignupVerifyMfaSetup{permit: newPermit, kind: s.kind, already: s.already})
	}
	return result.Ok[SignupNewMfaOrFinalize, SignupVerifyMfaSetup](SignupNewMfaOrFinalize{
		permit:       newPermit,
		alreadySetup: appendKind(s.already, s.kind),
	})
}

// --- VerifyTotpSetup ---------------------------------------------------------

// SignupVerifyTotpSetup awaits a TOTP guess. URI is only populated on
// the initial attempt; retries carry only the bare state.
type SignupVerifyTotpSetup struct {
	permit  string
	uri     *string
	already []MfaKind
}

// URI returns the provisioning URI to render as a QR code, non-nil
// only on the first attempt at this stage.
func (s SignupVerifyTotpSetup) URI() *string { return s.uri }

// Kind always reports MfaTotp for this stage.
func (s SignupVerifyTotpSetup) Kind() MfaKind { return MfaTotp }

// Guess verifies code. On an incorrect code, the returned retry state
// carries no URI.
func (s SignupVerifyTotpSetup) Guess(ctx context.Context, c *Client, code Totp) result.Result[SignupNewMfaOrFinalize, SignupVerifyTotpSetup] {
	ok, newPermit := requestVerifyTotpSetup(ctx, c, routeSignup, s.permit, code)
	if !ok {
		return result.Err[SignupNewMfaOrFinalize, SignupVerifyTotpSetup](SignupVerifyTotpSetup{permit: newPermit, already: s.already})
	}
	return result.Ok[SignupNewMfaOrFinalize, SignupVerifyTotpSetup](SignupNewMfaOrFinalize{
		permit:       newPermit,
		alreadySetup: appendKind(s.already, MfaTotp),
	})
}

// --- NewMfaOrFinalize ---------------------------------------------------------

// SignupNewMfaOrFinalize is reached after any successful MFA-setup
// verification. The caller may configure another MFA kind (looping
// back into verification) or Finish to obtain a session Token.
type SignupNewMfaOrFinalize struct {
	permit       string
	alreadySetup []MfaKind
}

// AlreadySetup returns the MFA kinds configured so far.
func (s SignupNewMfaOrFinalize) AlreadySetup() []MfaKind { return s.alreadySetup }

// Totp configures an additional TOTP method.
func (s SignupNewMfaOrFinalize) Totp(ctx context.Context, c *Client) SignupVerifyTotpSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_mfa", s.permit, MfaTotp, "")
	return SignupVerifyTotpSetup{permit: out.permit, uri: out.totpURI, already: s.alreadySetup}
}

// Sms configures an additional SMS OTP method against phone.
func (s SignupNewMfaOrFinalize) Sms(ctx context.Context, c *Client, phone string) SignupVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_mfa", s.permit, MfaSms, phone)
	return SignupVerifyMfaSetup{permit: out.permit, kind: MfaSms, already: s.alreadySetup}
}

// Email configures an additional email OTP method against addr.
func (s SignupNewMfaOrFinalize) Email(ctx context.Context, c *Client, addr string) SignupVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeSignup, "setup_mfa", s.permit, MfaEmail, addr)
	return SignupVerifyMfaSetup{permit: out.permit, kind: MfaEmail, already: s.alreadySetup}
}

// Finish ends the signup flow, yielding the new session Token (terminal).
func (s SignupNewMfaOrFinalize) Finish(ctx context.Context, c *Client) Token {
	return finishTerminal(ctx, c, routeSignup, "finish", s.permit)
}
