package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// MigrateLogin shares the signup flow's MFA-setup topology but skips
// SetPassword, since the legacy password is verified at ingress, and
// ends in NewMfaOrLogin, which issues a Token directly rather than a
// separate Finish step.

type helloMigrateArgs struct {
	HelloLogin struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"hello_login"`
}

type helloMigrateRet struct {
	HelloLogin *struct{}     `json:"hello_login"`
	Failure    *LoginFailure `json:"failure"`
}

// MigrateLogin starts the legacy-password migration flow.
// LoginError.Reason == FailureWrongFlow indicates the target user
// already has MFA configured and must use Login instead.
func (c *Client) MigrateLogin(ctx context.Context, username string, password Password) result.FutureResult[MigrateLoginSetupFirstMfa, LoginError] {
	return result.Go(func(ctx context.Context) result.Result[MigrateLoginSetupFirstMfa, LoginError] {
		var args helloMigrateArgs
		args.HelloLogin.Username = username
		args.HelloLogin.Password = password.Expose()

		decoded, reqErr := c.call(ctx, routeMLogin, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[helloMigrateRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		switch {
		case ret.Failure != nil:
			return result.Err[MigrateLoginSetupFirstMfa, LoginError](LoginError{Reason: *ret.Failure})
		default:
			return result.Ok[MigrateLoginSetupFirstMfa, LoginError](MigrateLoginSetupFirstMfa{
				permit: permitOf(decoded.Permit),
			})
		}
	})
}

// --- SetupFirstMfa -----------------------------------------------------------

// MigrateLoginSetupFirstMfa is reached immediately after a successful
// legacy-password check.
type MigrateLoginSetupFirstMfa struct {
	permit string
}

// Totp begins TOTP setup.
func (s MigrateLoginSetupFirstMfa) Totp(ctx context.Context, c *Client) MigrateLoginVerifyTotpSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_first_mfa", s.permit, MfaTotp, "")
	return MigrateLoginVerifyTotpSetup{permit: out.permit, uri: out.totpURI}
}

// Sms begins SMS OTP setup against phone.
func (s MigrateLoginSetupFirstMfa) Sms(ctx context.Context, c *Client, phone string) MigrateLoginVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_first_mfa", s.permit, MfaSms, phone)
	return MigrateLoginVerifyMfaSetup{permit: out.permit, kind: MfaSms}
}

// Email begins email OTP setup against addr.
func (s MigrateLoginSetupFirstMfa) Email(ctx context.Context, c *Client, addr string) MigrateLoginVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_first_mfa", s.permit, MfaEmail, addr)
	return MigrateLoginVerifyMfaSetup{permit: out.permit, kind: MfaEmail}
}

// --- VerifyMfaSetup / VerifyTotpSetup ----------------------------------------

// MigrateLoginVerifyMfaSetup awaits an SMS/Email OTP guess. It carries
// the kinds verified in earlier loops so the set keeps growing across
// setups.
type MigrateLoginVerifyMfaSetup struct {
	permit  string
	kind    MfaKind
	already []MfaKind
}

// Kind reports which MFA method is being verified.
func (s MigrateLoginVerifyMfaSetup) Kind() MfaKind { return s.kind }

// Guess verifies otp.
func (s MigrateLoginVerifyMfaSetup) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyMfaSetup] {
	ok, newPermit := requestVerifySimpleSetup(ctx, c, routeMLogin, s.permit, otp)
	if !ok {
		return result.Err[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyMfaSetup](MigrateLoginVerifyMfaSetup{permit: newPermit, kind: s.kind, already: s.already})
	}
	return result.Ok[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyMfaSetup](MigrateLoginNewMfaOrLogin{
		permit:       newPermit,
		alreadySetup: appendKind(s.already, s.kind),
	})
}

// MigrateLoginVerifyTotpSetup awaits a TOTP guess. URI is only
// populated on the initial attempt.
type MigrateLoginVerifyTotpSetup struct {
	permit  string
	uri     *string
	already []MfaKind
}

// URI returns the provisioning URI, non-nil only on the first attempt.
func (s MigrateLoginVerifyTotpSetup) URI() *string { return s.uri }

// Kind always reports MfaTotp for this stage.
func (s MigrateLoginVerifyTotpSetup) Kind() MfaKind { return MfaTotp }

// Guess verifies code.
func (s MigrateLoginVerifyTotpSetup) Guess(ctx context.Context, c *Client, code Totp) result.Result[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyTotpSetup] {
	ok, newPermit := requestVerifyTotpSetup(ctx, c, routeMLogin, s.permit, code)
	if !ok {
		return result.Err[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyTotpSetup](MigrateLoginVerifyTotpSetup{permit: newPermit, already: s.already})
	}
	return result.Ok[MigrateLoginNewMfaOrLogin, MigrateLoginVerifyTotpSetup](MigrateLoginNewMfaOrLogin{
		permit:       newPermit,
		alreadySetup: appendKind(s.already, MfaTotp),
	})
}

// --- NewMfaOrLogin -------------------------------------------------------------

// MigrateLoginNewMfaOrLogin is reached after any successful MFA-setup
// verification: configure another kind, or Login to obtain a Token.
type MigrateLoginNewMfaOrLogin struct {
	permit       string
	alreadySetup []MfaKind
}

// AlreadySetup returns the MFA kinds configured so far.
func (s MigrateLoginNewMfaOrLogin) AlreadySetup() []MfaKind { return s.alreadySetup }

// Totp configures an additional TOTP method.
func (s MigrateLoginNewMfaOrLogin) Totp(ctx context.Context, c *Client) MigrateLoginVerifyTotpSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_mfa", s.permit, MfaTotp, "")
	return MigrateLoginVerifyTotpSetup{permit: out.permit, uri: out.totpURI, already: s.alreadySetup}
}

// Sms configures an additional SMS OTP method against phone.
func (s MigrateLoginNewMfaOrLogin) Sms(ctx context.Context, c *Client, phone string) MigrateLoginVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_mfa", s.permit, MfaSms, phone)
	return MigrateLoginVerifyMfaSetup{permit: out.permit, kind: MfaSms, already: s.alreadySetup}
}

// Email configures an additional email OTP method against addr.
func (s MigrateLoginNewMfaOrLogin) Email(ctx context.Context, c *Client, addr string) MigrateLoginVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeMLogin, "setup_mfa", s.permit, MfaEmail, addr)
	return MigrateLoginVerifyMfaSetup{permit: out.permit, kind: MfaEmail, already: s.alreadySetup}
}

// Login ends the migration flow, yielding the new session Token.
func (s MigrateLoginNewMfaOrLogin) Login(ctx context.Context, c *Client) Token {
	return finishTerminal(ctx, c, routeMLogin, "login", s.permit)
}
