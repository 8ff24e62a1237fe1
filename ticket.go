package velo

import (
	"context"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
	"github.com/IronVelo/cs-velo-sdk/result"
)

// The Ticket recovery flow: a privileged user Issues a ticket for a
// target account; the end-user Redeems it, ties it to a recovery
// operation, then proceeds through ResetPassword/SetupMfa (or both,
// in order, for ResetAll) before CompleteRecovery mints a new session
// Token. Redemption uses the ticket itself as the permit: there is no
// separate ingress round trip before Redeem.

// TicketKind enumerates the scope a privileged user grants when
// issuing a recovery ticket.
type TicketKind string

const (
	// TicketMutual allows password or MFA reset, but not both
	// (ResetAll is forbidden).
	TicketMutual TicketKind = "Mutual"
	// TicketFull allows any recovery operation, including ResetAll.
	TicketFull TicketKind = "Full"
)

// RecoveryOp enumerates what a redeemed ticket will be used for.
type RecoveryOp string

const (
	RecoveryResetPassword RecoveryOp = "ResetPassword"
	RecoveryResetMfa      RecoveryOp = "ResetMfa"
	RecoveryResetAll      RecoveryOp = "ResetAll"
)

type issueTicketArgs struct {
	Issue struct {
		AdminToken     Token      `json:"admin_token"`
		TargetUsername string     `json:"target_username"`
		Kind           TicketKind `json:"kind"`
		Reason         string     `json:"reason"`
	} `json:"issue"`
}

type issueTicketRet struct {
	Ticket   Ticket `json:"ticket"`
	NewToken Token  `json:"new_token"`
}

// IssuedTicket pairs a freshly issued recovery Ticket with the
// admin's rotated session Token.
type IssuedTicket struct {
	Ticket   Ticket
	NewToken Token
}

// IssueTicket lets a privileged user identified by adminToken grant a
// recovery ticket to targetUsername, scoped by kind and annotated with
// reason for audit purposes. adminToken is consumed
// regardless of outcome.
func (c *Client) IssueTicket(ctx context.Context, adminToken Token, targetUsername string, kind TicketKind, reason string) result.FutureResult[IssuedTicket, struct{}] {
	sealed := adminToken.consume()
	return result.Go(func(ctx context.Context) result.Result[IssuedTicket, struct{}] {
		var args issueTicketArgs
		args.Issue.AdminToken = NewToken(sealed)
		args.Issue.TargetUsername = targetUsername
		args.Issue.Kind = kind
		args.Issue.Reason = reason

		decoded, reqErr := c.call(ctx, routeRecovery, args, nil)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[issueTicketRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		return result.Ok[IssuedTicket, struct{}](IssuedTicket{Ticket: ret.Ticket, NewToken: ret.NewToken})
	})
}

type redeemTicketArgs struct {
	Redeem struct {
		Operation RecoveryOp `json:"operation"`
	} `json:"redeem"`
}

type redeemTicketRet struct {
	Verified  *struct{}                 `json:"verified"`
	Rejection *TicketVerificationReason `json:"rejection"`
}

// Redeem begins recovery using ticket for operation. A Mutual ticket
// forbids ResetAll; the ticket is opaque to the client, so that check
// is the IdP's, reported back as an InvalidOp rejection. ticket is
// consumed regardless of outcome and is carried as the request's
// permit.
func (c *Client) Redeem(ctx context.Context, ticket Ticket, operation RecoveryOp) result.FutureResult[VerifiedTicket, TicketVerificationError] {
	sealed := ticket.consume()
	return result.Go(func(ctx context.Context) result.Result[VerifiedTicket, TicketVerificationError] {
		permit := encodeTokenString(sealed)

		var args redeemTicketArgs
		args.Redeem.Operation = operation

		decoded, reqErr := c.call(ctx, routeRecovery, args, &permit)
		if reqErr != nil {
			panic(reqErr)
		}

		ret, reqErr := envelope.DecodeRet[redeemTicketRet](decoded.Ret)
		if reqErr != nil {
			panic(reqErr)
		}

		either, reqErr := envelope.ToResult(ret.Verified, ret.Rejection)
		if reqErr != nil {
			panic(reqErr)
		}
		return result.MapErr(result.Map(either, func(struct{}) VerifiedTicket {
			return VerifiedTicket{permit: permitOf(decoded.Permit), operation: operation}
		}), func(reason TicketVerificationReason) TicketVerificationError {
			return TicketVerificationError{Reason: reason}
		})
	})
}

// --- VerifiedTicket -----------------------------------------------------

// VerifiedTicket is reached once a ticket is confirmed valid for its
// requested operation; Proceed routes to the stage(s) that
// operation requires.
type VerifiedTicket struct {
	permit    string
	operation RecoveryOp
}

// Operation reports the recovery operation this ticket was redeemed for.
func (s VerifiedTicket) Operation() RecoveryOp { return s.operation }

// TicketRoute is the sum type returned by Proceed: exactly one of its
// fields is populated, chosen by the ticket's Operation.
type TicketRoute struct {
	ResetPassword *TicketResetPassword
	SetupMfa      *TicketSetupMfa
}

// Proceed routes to ResetPassword, SetupMfa, or (for ResetAll) the
// first of the two; SetupMfa is reached afterward via
// TicketResetPassword.Submit.
func (s VerifiedTicket) Proceed(ctx context.Context, c *Client) TicketRoute {
	switch s.operation {
	case RecoveryResetMfa:
		return TicketRoute{SetupMfa: &TicketSetupMfa{permit: s.permit}}
	default:
		// ResetPassword and ResetAll both begin with a password reset;
		// ResetAll's TicketResetPassword.Submit continues into SetupMfa
		// instead of CompleteRecovery.
		return TicketRoute{ResetPassword: &TicketResetPassword{permit: s.permit, operation: s.operation}}
	}
}

// --- ResetPassword --------------------------------------------------------

// TicketResetPassword awaits the new password for the target account.
type TicketResetPassword struct {
	permit    string
	operation RecoveryOp
}

type ticketResetPasswordArgs struct {
	ResetPassword struct {
		Password string `json:"password"`
	} `json:"reset_password"`
}

// TicketAfterPassword is the sum type returned by Submit: exactly one
// field is populated, depending on whether the ticket's operation
// continues into MFA setup (ResetAll) or completes directly
// (ResetPassword).
type TicketAfterPassword struct {
	SetupMfa *TicketSetupMfa
	Complete *TicketCompleteRecovery
}

// Submit sets newPassword as the account's new password. For a plain
// ResetPassword ticket this reaches CompleteRecovery directly; for
// ResetAll it continues into SetupMfa.
func (s TicketResetPassword) Submit(ctx context.Context, c *Client, newPassword Password) TicketAfterPassword {
	var args ticketResetPasswordArgs
	args.ResetPassword.Password = newPassword.Expose()

	decoded, reqErr := c.call(ctx, routeRecovery, args, permitPtr(s.permit))
	if reqErr != nil {
		panic(reqErr)
	}

	newPermit := permitOf(decoded.Permit)
	if s.operation == RecoveryResetAll {
		return TicketAfterPassword{SetupMfa: &TicketSetupMfa{permit: newPermit}}
	}
	return TicketAfterPassword{Complete: &TicketCompleteRecovery{permit: newPermit}}
}

// --- SetupMfa --------------------------------------------------------------

// TicketSetupMfa awaits selection and verification of a replacement
// MFA method, reusing the setup-mfa capability set shared with
// Signup/MigrateLogin/UpdateMfa. Whether it was reached directly
// (ResetMfa) or after a password reset (ResetAll), verification
// converges on CompleteRecovery.
type TicketSetupMfa struct {
	permit string
}

// Totp begins TOTP setup.
func (s TicketSetupMfa) Totp(ctx context.Context, c *Client) TicketVerifyTotpSetup {
	out := requestMfaSetup(ctx, c, routeRecovery, "setup_mfa", s.permit, MfaTotp, "")
	return TicketVerifyTotpSetup{permit: out.permit, uri: out.totpURI}
}

// Sms begins SMS OTP setup against phone.
func (s TicketSetupMfa) Sms(ctx context.Context, c *Client, phone string) TicketVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeRecovery, "setup_mfa", s.permit, MfaSms, phone)
	return TicketVerifyMfaSetup{permit: out.permit, kind: MfaSms}
}

// Email begins email OTP setup against addr.
func (s TicketSetupMfa) Email(ctx context.Context, c *Client, addr string) TicketVerifyMfaSetup {
	out := requestMfaSetup(ctx, c, routeRecovery, "setup_mfa", s.permit, MfaEmail, addr)
	return TicketVerifyMfaSetup{permit: out.permit, kind: MfaEmail}
}

// TicketVerifyMfaSetup awaits an SMS/Email OTP guess confirming the
// replacement MFA method.
type TicketVerifyMfaSetup struct {
	permit string
	kind   MfaKind
}

// Kind reports which MFA method is being verified.
func (s TicketVerifyMfaSetup) Kind() MfaKind { return s.kind }

// Guess verifies otp, completing at TicketCompleteRecovery on success.
func (s TicketVerifyMfaSetup) Guess(ctx context.Context, c *Client, otp SimpleOtp) result.Result[TicketCompleteRecovery, TicketVerifyMfaSetup] {
	ok, newPermit := requestVerifySimpleSetup(ctx, c, routeRecovery, s.permit, otp)
	if !ok {
		return result.Err[TicketCompleteRecovery, TicketVerifyMfaSetup](TicketVerifyMfaSetup{permit: newPermit, kind: s.kind})
	}
	return result.Ok[TicketCompleteRecovery, TicketVerifyMfaSetup](TicketCompleteRecovery{permit: newPermit})
}

// TicketVerifyTotpSetup awaits a TOTP guess. URI is only populated on
// the initial attempt.
type TicketVerifyTotpSetup struct {
	permit string
	uri    *string
}

// URI returns the provisioning URI, non-nil only on the first attempt.
func (s TicketVerifyTotpSetup) URI() *string { return s.uri }

// Kind always reports MfaTotp for this stage.
func (s TicketVerifyTotpSetup) Kind() MfaKind { return MfaTotp }

// Guess verifies code, completing at TicketCompleteRecovery on success.
func (s TicketVerifyTotpSetup) Guess(ctx context.Context, c *Client, code Totp) result.Result[TicketCompleteRecovery, TicketVerifyTotpSetup] {
	ok, newPermit := requestVerifyTotpSetup(ctx, c, routeRecovery, s.permit, code)
	if !ok {
		return result.Err[TicketCompleteRecovery, TicketVerifyTotpSetup](TicketVerifyTotpSetup{permit: newPermit})
	}
	return result.Ok[TicketCompleteRecovery, TicketVerifyTotpSetup](TicketCompleteRecovery{permit: newPermit})
}

// --- CompleteRecovery --------------------------------------------------------

// TicketCompleteRecovery is the final stage of recovery: the target
// user has already authenticated implicitly via the ticket, and
// completion mints a fresh session Token directly from the supplied
// token.
type TicketCompleteRecovery struct {
	permit string
}

// Complete finalizes recovery, consuming token and returning the new
// session Token.
func (s TicketCompleteRecovery) Complete(ctx context.Context, c *Client, token Token) Token {
	return finalizeWithToken(ctx, c, routeRecovery, "complete_recovery", s.permit, token)
}
