package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
)

// The "setup-mfa" capability set shared by the Signup, MigrateLogin,
// UpdateMfa, and Ticket flows. All of them negotiate a new MFA method
// the same way: choose a kind, optionally render a TOTP provisioning
// URI, verify the user controls it. They differ only in their
// state-tag enumerations and terminal transition, so each flow's own
// file supplies thin wrapper methods around the functions here.

type mfaSetupKindArg struct {
	Totp  *struct{} `json:"Totp,omitempty"`
	Sms   *string   `json:"Sms,omitempty"`
	Email *string   `json:"Email,omitempty"`
}

type setupMfaArgs struct {
	Kind mfaSetupKindArg `json:"kind"`
}

type setupTotpRet struct {
	SetupTotp *string `json:"setup_totp"`
}

type verifySimpleRet struct {
	MaybeRetrySimple *bool `json:"maybe_retry_simple"`
}

type verifyTotpSetupRet struct {
	MaybeRetryTotp *bool `json:"maybe_retry_totp"`
}

// mfaSetupOutcome carries the rotated permit and (for Totp only) the
// provisioning URI returned by a setup-mfa call.
type mfaSetupOutcome struct {
	permit  string
	kind    MfaKind
	totpURI *string
}

// requestMfaSetup dispatches a setup-mfa call of kind, tagged with the
// wire key tag (e.g. "setup_first_mfa", "setup_mfa"). contact carries
// the phone number or email address for Sms/Email; it is ignored for Totp.
func requestMfaSetup(ctx context.Context, c *Client, route, tag, permit string, kind MfaKind, contact string) mfaSetupOutcome {
	var arg mfaSetupKindArg
	switch kind {
	case MfaTotp:
		arg.Totp = &struct{}{}
	case MfaSms:
		phone := contact
		arg.Sms = &phone
	case MfaEmail:
		addr := contact
		arg.Email = &addr
	}

	decoded, reqErr := c.call(ctx, route, map[string]setupMfaArgs{tag: {Kind: arg}}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}

	out := mfaSetupOutcome{permit: permitOf(decoded.Permit), kind: kind}
	if kind == MfaTotp {
		ret, reqErr := envelope.DecodeRet[setupTotpRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}
		out.totpURI = ret.SetupTotp
	}
	return out
}

// requestVerifySimpleSetup dispatches a verify_simple_otp call against
// route/permit. It returns true on success (with the rotated permit);
// false means the IdP reported maybe_retry_simple and the caller should
// return to the bare-retry verification state.
func requestVerifySimpleSetup(ctx context.Context, c *Client, route, permit string, otp SimpleOtp) (bool, string) {
	decoded, reqErr := c.call(ctx, route, map[string]guessArgs{"verify_simple_otp": {Guess: otp.Expose()}}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}
	if len(decoded.Ret) == 0 || string(decoded.Ret) == "{}" || string(decoded.Ret) == "null" {
		return true, permitOf(decoded.Permit)
	}
	ret, reqErr := envelope.DecodeRet[verifySimpleRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.MaybeRetrySimple != nil && *ret.MaybeRetrySimple {
		return false, permitOf(decoded.Permit)
	}
	panic(envelope.ErrDeserialization("verify mfa setup response carried neither ok nor maybe_retry_simple"))
}

// requestVerifyTotpSetup is the Totp sibling of requestVerifySimpleSetup.
func requestVerifyTotpSetup(ctx context.Context, c *Client, route, permit string, code Totp) (bool, string) {
	decoded, reqErr := c.call(ctx, route, map[string]guessArgs{"verify_totp_setup": {Guess: code.Expose()}}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}
	if len(decoded.Ret) == 0 || string(decoded.Ret) == "{}" || string(decoded.Ret) == "null" {
		return true, permitOf(decoded.Permit)
	}
	ret, reqErr := envelope.DecodeRet[verifyTotpSetupRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.MaybeRetryTotp != nil && *ret.MaybeRetryTotp {
		return false, permitOf(decoded.Permit)
	}
	panic(envelope.ErrDeserialization("verify totp setup response carried neither ok nor maybe_retry_totp"))
}

// appendKind returns already with kind appended if not already present.
func appendKind(already []MfaKind, kind MfaKind) []MfaKind {
	if containsKind(already, kind) {
		return already
	}
	out := make([]MfaKind, len(already), len(already)+1)
	copy(out, already)
	return append(out, kind)
}

// finishTerminal dispatches the "finish"-shaped terminal call common to
// Signup.NewMfaOrFinalize.Finish and MigrateLogin.NewMfaOrLogin.Login,
// both of which repurpose the rotated permit slot to carry the new
// session Token (the same convention as the Login flow's terminal guess).
func finishTerminal(ctx context.Context, c *Client, route, tag, permit string) Token {
	decoded, reqErr := c.call(ctx, route, map[string]struct{}{tag: {}}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return NewToken(mustDecodeTokenPermit(decoded.Permit))
}
