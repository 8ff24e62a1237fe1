package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// The UpdateMfa flow: Hello(token) -> StartUpdate, then
// re-authentication with an existing MFA method (CheckOtp/CheckTotp),
// then Decide branches to either remove an MFA kind (FinalizeRemoval)
// or add one (EnsureOtpSetup/EnsureTotpSetup -> FinalizeUpdate).
//
// The IdP performs no mutation of the user's MFA configuration before
// a Finalize* call; every intermediate state here is pure
// verification/negotiation.

// UpdateMfaHello pairs the StartUpdate state with the rotated Token
// issued alongside it. Both halves must be used: the state to continue
// the flow, the token for any other concurrent session need.
type UpdateMfaHello struct {
	State UpdateMfaStartUpdate
	Token Token
}

type helloUpdateMfaArgs struct {
	HelloUpdateMfa struct {
		Token Token `json:"token"`
	} `json:"hello_update_mfa"`
}

type helloUpdateMfaRet struct {
	OldMfa   []MfaKind `json:"old_mfa"`
	NewToken Token     `json:"new_token"`
}

// UpdateMfa starts the MFA-update flow for the session identified by
// token. token is consumed regardless of outcome.
func (c *Client) UpdateMfa(ctx context.Context, token Token) result.FutureResult[UpdateMfaHello, struct{}] {
	sealed := token.consume()
	return result.Go(func(ctx context.Context) result.Result[UpdateMfaHello, struct{}] {
		var args helloUpdateMfaArgs
		args.HelloUpdateMfa.Token = NewToken(sealed)

		decoded, reqErr := c.call(ctx, routeUpMfa, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[helloUpdateMfaRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		return result.Ok[UpdateMfaHello, struct{}](UpdateMfaHello{
			State: UpdateMfaStartUpdate{permit: permitOf(decoded.Permit), oldMfa: ret.OldMfa},
			Token: ret.NewToken,
		})
	})
}

// --- StartUpdate ---------------------------------------------------------

// UpdateMfaStartUpdate awaits re-authentication via one of the user's
// already-configured MFA kinds.
type UpdateMfaStartUpdate struct {
	permit string
	oldMfa []MfaKind
}

// OldMfa returns the user's currently configured MFA kinds.
func (s UpdateMfaStartUpdate) OldMfa() []MfaKind { return s.oldMfa }

// Sms requests re-authentication via SMS OTP. Unavailable kinds return
// Err(self) unchanged without a round trip, the same guard the Login
// flow's InitMfa applies.
func (s UpdateMfaStartUpdate) Sms(ctx context.Context, c *Client) result.Result[UpdateMfaCheckOtp, UpdateMfaStartUpdate] {
	return s.checkOtp(ctx, c, MfaSms)
}

// Email requests re-authentication via email OTP.
func (s UpdateMfaStartUpdate) Email(ctx context.Context, c *Client) result.Result[UpdateMfaCheckOtp, UpdateMfaStartUpdate] {
	return s.checkOtp(ctx, c, MfaEmail)
}

func (s UpdateMfaStartUpdate) checkOtp(ctx context.Context, c *Client, kind MfaKind) result.Result[UpdateMfaCheckOtp, UpdateMfaStartUpdate] {
	if !containsKind(s.oldMfa, kind) {
		return result.Err[UpdateMfaCheckOtp, UpdateMfaStartUpdate](s)
	}
	decoded, reqErr := c.call(ctx, routeUpMfa, map[string]initMfaArgs{"check_otp": {Kind: kind}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return result.Ok[UpdateMfaCheckOtp, UpdateMfaStartUpdate](UpdateMfaCheckOtp{
		permit: permitOf(decoded.Permit),
		oldMfa: s.oldMfa,
	})
}

// Totp requests re-authentication via TOTP.
func (s UpdateMfaStartUpdate) Totp(ctx context.Context, c *Client) result.Result[UpdateMfaCheckTotp, UpdateMfaStartUpdate] {
	if !containsKind(s.oldMfa, MfaTotp) {
		return result.Err[UpdateMfaCheckTotp, UpdateMfaStartUpdate](s)
	}
	decoded, reqErr := c.call(ctx, routeUpMfa, map[string]initMfaArgs{"check_totp": {Kind: MfaTotp}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return result.Ok[UpdateMfaCheckTotp, UpdateMfaStartUpdate](UpdateMfaCheckTotp{
		permit: permitOf(decoded.Permit),
		oldMfa: s.oldMfa,
	})
}

// --- CheckOtp / CheckTotp -------------------------------------------------

// UpdateMfaCheckOtp awaits an SMS/Email OTP guess re-authenticating the user.
type UpdateMfaCheckOtp struct {
	permit string
	oldMfa []MfaKind
}

// Guess verifies otp. On success transitions to UpdateMfaDecide; on
// failure returns to UpdateMfaStartUpdate with a fresh permit.
func (s UpdateMfaCheckOtp) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[UpdateMfaDecide, UpdateMfaStartUpdate] {
	decoded, reqErr := c.call(ctx, routeUpMfa, map[string]guessArgs{"verify_simple_otp": {Guess: otp.Expose()}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return resolveUpdateMfaCheck(decoded, s.oldMfa)
}

// UpdateMfaCheckTotp awaits a TOTP guess re-authenticating the user.
type UpdateMfaCheckTotp struct {
	permit string
	oldMfa []MfaKind
}

// Guess verifies code. Same success/retry protocol as UpdateMfaCheckOtp.Guess.
func (s UpdateMfaCheckTotp) Guess(ctx context.Context, c *Client, code Totp) result.Result[UpdateMfaDecide, UpdateMfaStartUpdate] {
	decoded, reqErr := c.call(ctx, routeUpMfa, map[string]guessArgs{"verify_totp": {Guess: code.Expose()}}, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return resolveUpdateMfaCheck(decoded, s.oldMfa)
}

type checkRet struct {
	Retry *bool `json:"retry"`
}

func resolveUpdateMfaCheck(decoded envelope.Decoded, oldMfa []MfaKind) result.Result[UpdateMfaDecide, UpdateMfaStartUpdate] {
	if len(decoded.Ret) == 0 || string(decoded.Ret) == "{}" || string(decoded.Ret) == "null" {
		return result.Ok[UpdateMfaDecide, UpdateMfaStartUpdate](UpdateMfaDecide{
			permit: permitOf(decoded.Permit),
			oldMfa: oldMfa,
		})
	}
	ret, reqErr := envelope.DecodeRet[checkRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.Retry != nil && *ret.Retry {
		return result.Err[UpdateMfaDecide, UpdateMfaStartUpdate](UpdateMfaStartUpdate{
			permit: permitOf(decoded.Permit),
			oldMfa: oldMfa,
		})
	}
	panic(envelope.ErrDeserialization("updatemfa check response carried neither ok nor retry"))
}

// --- Decide ----------------------------------------------------------------

// UpdateMfaDecide is reached after successful re-authentication: the
// caller chooses to remove an existing MFA kind or configure a new one.
type UpdateMfaDecide struct {
	permit string
	oldMfa []MfaKind
}

// OldMfa returns the user's currently configured MFA kinds.
func (s UpdateMfaDecide) OldMfa() []MfaKind { return s.oldMfa }

type removeMfaArgs struct {
	RemoveMfa struct {
		Kind MfaKind `json:"kind"`
	} `json:"remove_mfa"`
}

type removeMfaRet struct {
	InvalidMfa *bool `json:"invalid_mfa"`
}

// Remove requests removal of kind. It refuses client-side if kind is
// the user's only configured MFA method or isn't configured at all;
// the IdP re-checks both.
//
// Failure is reported only when the response carries the invalid_mfa
// slot; a response without it means the IdP accepted the removal.
func (s UpdateMfaDecide) Remove(ctx context.Context, c *Client, kind MfaKind) result.Result[UpdateMfaFinalizeRemoval, CannotRemoveMfaError] {
	if !containsKind(s.oldMfa, kind) {
		return result.Err[UpdateMfaFinalizeRemoval, CannotRemoveMfaError](CannotRemoveMfaError{Reason: ReasonNotSetUp})
	}
	if len(s.oldMfa) == 1 {
		return result.Err[UpdateMfaFinalizeRemoval, CannotRemoveMfaError](CannotRemoveMfaError{Reason: ReasonIsOnlyMfaKind})
	}

	var args removeMfaArgs
	args.RemoveMfa.Kind = kind
	decoded, reqErr := c.call(ctx, routeUpMfa, args, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}

	ret, reqErr := envelope.DecodeRet[removeMfaRet](decoded.Ret)
	if reqErr != nil {
		panic(reqErr)
	}
	if ret.InvalidMfa != nil && *ret.InvalidMfa {
		return result.Err[UpdateMfaFinalizeRemoval, CannotRemoveMfaError](CannotRemoveMfaError{Reason: ReasonUpstream})
	}
	return result.Ok[UpdateMfaFinalizeRemoval, CannotRemoveMfaError](UpdateMfaFinalizeRemoval{
		permit: permitOf(decoded.Permit),
		oldMfa: s.oldMfa,
	})
}

// Totp begins setup of an additional TOTP method.
func (s UpdateMfaDecide) Totp(ctx context.Context, c *Client) UpdateMfaEnsureTotpSetup {
	out := requestMfaSetup(ctx, c, routeUpMfa, "ensure_totp_setup", s.permit, MfaTotp, "")
	return UpdateMfaEnsureTotpSetup{permit: out.permit, uri: out.totpURI, oldMfa: s.oldMfa}
}

// Sms begins setup of an additional SMS OTP method against phone.
func (s UpdateMfaDecide) Sms(ctx context.Context, c *Client, phone string) UpdateMfaEnsureOtpSetup {
	out := requestMfaSetup(ctx, c, routeUpMfa, "ensure_otp_setup", s.permit, MfaSms, phone)
	return UpdateMfaEnsureOtpSetup{permit: out.permit, kind: MfaSms, oldMfa: s.oldMfa}
}

// Email begins setup of an additional email OTP method against addr.
func (s UpdateMfaDecide) Email(ctx context.Context, c *Client, addr string) UpdateMfaEnsureOtpSetup {
	out := requestMfaSetup(ctx, c, routeUpMfa, "ensure_otp_setup", s.permit, MfaEmail, addr)
	return UpdateMfaEnsureOtpSetup{permit: out.permit, kind: MfaEmail, oldMfa: s.oldMfa}
}

// --- FinalizeRemoval ---------------------------------------------------------

// UpdateMfaFinalizeRemoval commits the MFA removal decided in Decide.
type UpdateMfaFinalizeRemoval struct {
	permit string
	oldMfa []MfaKind
}

// Commit finalizes the removal, consuming token and returning a
// rotated Token that preserves the user's login.
func (s UpdateMfaFinalizeRemoval) Commit(ctx context.Context, c *Client, token Token) Token {
	return finalizeWithToken(ctx, c, routeUpMfa, "finalize_removal", s.permit, token)
}

// --- EnsureOtpSetup / EnsureTotpSetup -----------------------------------------

// UpdateMfaEnsureOtpSetup awaits an SMS/Email OTP guess confirming the
// caller controls the address just configured.
type UpdateMfaEnsureOtpSetup struct {
	permit string
	kind   MfaKind
	oldMfa []MfaKind
}

// Kind reports which MFA method is being verified.
func (s UpdateMfaEnsureOtpSetup) Kind() MfaKind { return s.kind }

// Guess verifies otp.
func (s UpdateMfaEnsureOtpSetup) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[UpdateMfaFinalizeUpdate, UpdateMfaEnsureOtpSetup] {
	ok, newPermit := requestVerifySimpleSetup(ctx, c, routeUpMfa, s.permit, otp)
	if !ok {
		return result.Err[UpdateMfaFinalizeUpdate, UpdateMfaEnsureOtpSetup](UpdateMfaEnsureOtpSetup{permit: newPermit, kind: s.kind, oldMfa: s.oldMfa})
	}
	return result.Ok[UpdateMfaFinalizeUpdate, UpdateMfaEnsureOtpSetup](UpdateMfaFinalizeUpdate{permit: newPermit, oldMfa: s.oldMfa})
}

// UpdateMfaEnsureTotpSetup awaits a TOTP guess. URI is only populated
// on the initial attempt.
type UpdateMfaEnsureTotpSetup struct {
	permit string
	uri    *string
	oldMfa []MfaKind
}

// URI returns the provisioning URI, non-nil only on the first attempt.
func (s UpdateMfaEnsureTotpSetup) URI() *string { return s.uri }

// Kind always reports MfaTotp for this stage.
func (s UpdateMfaEnsureTotpSetup) Kind() MfaKind { return MfaTotp }

// Guess verifies code.
func (s UpdateMfaEnsureTotpSetup) Guess(ctx context.Context, c *Client, code Totp) result.Result[UpdateMfaFinalizeUpdate, UpdateMfaEnsureTotpSetup] {
	ok, newPermit := requestVerifyTotpSetup(ctx, c, routeUpMfa, s.permit, code)
	if !ok {
		return result.Err[UpdateMfaFinalizeUpdate, UpdateMfaEnsureTotpSetup](UpdateMfaEnsureTotpSetup{permit: newPermit, oldMfa: s.oldMfa})
	}
	return result.Ok[UpdateMfaFinalizeUpdate, UpdateMfaEnsureTotpSetup](UpdateMfaFinalizeUpdate{permit: newPermit, oldMfa: s.oldMfa})
}

// --- FinalizeUpdate ----------------------------------------------------------

// UpdateMfaFinalizeUpdate commits the newly configured MFA method.
type UpdateMfaFinalizeUpdate struct {
	permit string
	oldMfa []MfaKind
}

// Commit finalizes the update, consuming token and returning a rotated
// Token that preserves the user's login.
func (s UpdateMfaFinalizeUpdate) Commit(ctx context.Context, c *Client, token Token) Token {
	return finalizeWithToken(ctx, c, routeUpMfa, "finalize_update", s.permit, token)
}

// finalizeWithToken is the shared implementation behind
// FinalizeRemoval.Commit and FinalizeUpdate.Commit: both take a
// session Token and return a rotated one, preserving the user's login
// across the MFA change.
func finalizeWithToken(ctx context.Context, c *Client, route, tag, permit string, token Token) Token {
	var args struct {
		Token Token `json:"token"`
	}
	args.Token = NewToken(token.consume())

	decoded, reqErr := c.call(ctx, route, map[string]interface{}{tag: args}, permitPtr(permit))
	if reqErr != nil {
		panic(reqErr)
	}
	return NewToken(mustDecodeTokenPermit(decoded.Permit))
}
