package velo

import (
	"fmt"

	"github.com/IronVelo/cs-velo-sdk/internal/envelope"
)

// RequestError is the fatal transport-level error channel. It is
// distinct from flow-level failures, which travel as result.Result
// errors within the success envelope. A RequestError aborts the
// current operation; the caller decides whether to restart the flow.
type RequestError = envelope.RequestError

// RequestErrorKind re-exports envelope.RequestErrorKind so callers
// never need to import the internal envelope package directly.
type RequestErrorKind = envelope.RequestErrorKind

const (
	KindDeserialization = envelope.KindDeserialization
	KindState           = envelope.KindState
	KindPrecondition    = envelope.KindPrecondition
	KindRequest         = envelope.KindRequest
	KindInternal        = envelope.KindInternal
	KindGeneral         = envelope.KindGeneral
)

// PasswordErrorKind enumerates why Password validation failed.
type PasswordErrorKind int

const (
	// PasswordTooShort means the password is below the 8-character floor.
	PasswordTooShort PasswordErrorKind = iota
	// PasswordTooLong means the password exceeds the 72-character ceiling.
	PasswordTooLong
	// PasswordIllegalCharacter means a character outside the allowed
	// classes (upper, lower, digit, special) was found.
	PasswordIllegalCharacter
	// PasswordMissingUpper means no uppercase letter was present.
	PasswordMissingUpper
	// PasswordMissingLower means no lowercase letter was present.
	PasswordMissingLower
	// PasswordMissingDigit means no decimal digit was present.
	PasswordMissingDigit
	// PasswordMissingSpecial means no special character was present.
	PasswordMissingSpecial
)

// PasswordError reports why ParsePassword rejected an input. Len is
// only meaningful for the two length-kind errors.
type PasswordError struct {
	Kind PasswordErrorKind
	Len  int
}

func (e *PasswordError) Error() string {
	switch e.Kind {
	case PasswordTooShort:
		return fmt.Sprintf("password: too few characters (got %d, need at least 8)", e.Len)
	case PasswordTooLong:
		return fmt.Sprintf("password: too many characters (got %d, max 72)", e.Len)
	case PasswordIllegalCharacter:
		return "password: contains a character outside the allowed set"
	case PasswordMissingUpper:
		return "password: missing an uppercase letter"
	case PasswordMissingLower:
		return "password: missing a lowercase letter"
	case PasswordMissingDigit:
		return "password: missing a decimal digit"
	case PasswordMissingSpecial:
		return "password: missing a special character"
	default:
		return "password: invalid"
	}
}

// OtpErrorKind enumerates why an OTP/TOTP code failed to parse.
type OtpErrorKind int

const (
	// OtpInvalidLength means the code was not the expected length.
	OtpInvalidLength OtpErrorKind = iota
	// OtpNonNumeric means the code contained a non-digit character.
	OtpNonNumeric
)

// InvalidOtpError reports why ParseSimpleOtp/ParseTotp rejected an input.
type InvalidOtpError struct {
	Kind     OtpErrorKind
	Expected int
	Received int
}

func (e *InvalidOtpError) Error() string {
	if e.Kind == OtpInvalidLength {
		return fmt.Sprintf("otp: expected %d characters, got %d", e.Expected, e.Received)
	}
	return "otp: code must be entirely numeric"
}

// UnknownMfaKindError reports an unparseable MfaKind name.
type UnknownMfaKindError struct {
	Raw string
}

func (e *UnknownMfaKindError) Error() string {
	return fmt.Sprintf("mfakind: unknown kind %q", e.Raw)
}

// LoginFailure enumerates the IdP's reasons for rejecting a Login or
// MigrateLogin ingress call, as carried in the "failure" field of the
// hello response.
type LoginFailure string

const (
	FailureUsernameNotFound  LoginFailure = "UsernameNotFound"
	FailureIncorrectPassword LoginFailure = "IncorrectPassword"
	FailureIllegalMfaKinds   LoginFailure = "IllegalMfaKinds"
	FailureWrongFlow         LoginFailure = "WrongFlow"
)

// LoginError is the flow-level ingress failure for Client.Login and
// Client.MigrateLogin.
type LoginError struct {
	Reason LoginFailure
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login: %s", e.Reason)
}

// UsernameAlreadyExistsError is the flow-level ingress failure for Client.Signup.
type UsernameAlreadyExistsError struct{}

func (e *UsernameAlreadyExistsError) Error() string {
	return "signup: username already exists"
}

// WrongFlowError describes a MigrateLogin attempt for a user who
// already has MFA configured and must use the normal Login flow
// instead. Client.MigrateLogin does not return it: it reports that
// case as a LoginError whose Reason is FailureWrongFlow.
type WrongFlowError struct{}

func (e *WrongFlowError) Error() string {
	return "migratelogin: user already migrated, use Login instead"
}

// DeleteFailureReason enumerates why a DeleteState step failed.
type DeleteFailureReason string

const (
	DeleteReasonInvalidUsername   DeleteFailureReason = "InvalidUsername"
	DeleteReasonIncorrectPassword DeleteFailureReason = "IncorrectPassword"
)

// DeleteError is a flow-level failure in the Delete flow. A new token
// always accompanies it, so a mistake in the deletion path never logs
// the user out; NewToken must be used for the caller's next request.
type DeleteError struct {
	Reason   DeleteFailureReason
	NewToken Token
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete: %s", e.Reason)
}

// CannotRemoveMfaReason enumerates why a requested MFA kind could not
// be removed in the UpdateMfa flow.
type CannotRemoveMfaReason string

const (
	// ReasonIsOnlyMfaKind means the requested kind is the user's only
	// configured MFA method; removing it would leave the account with
	// no second factor.
	ReasonIsOnlyMfaKind CannotRemoveMfaReason = "IsOnlyMfaKind"
	// ReasonNotSetUp means the requested kind isn't configured at all.
	ReasonNotSetUp CannotRemoveMfaReason = "NotSetUp"
	// ReasonUpstream means the IdP rejected the removal for a reason
	// not modeled client-side.
	ReasonUpstream CannotRemoveMfaReason = "Upstream"
)

// CannotRemoveMfaError is a flow-level failure from UpdateMfaDecide.Remove.
type CannotRemoveMfaError struct {
	Reason CannotRemoveMfaReason
}

func (e *CannotRemoveMfaError) Error() string {
	if e.Reason == ReasonUpstream {
		return "updatemfa: MFA State Tampering in Removal"
	}
	return fmt.Sprintf("updatemfa: cannot remove mfa kind (%s)", e.Reason)
}

// TicketVerificationReason enumerates why a recovery ticket redemption
// failed.
type TicketVerificationReason string

const (
	ReasonInvalidTicket TicketVerificationReason = "InvalidTicket"
	ReasonInvalidOp     TicketVerificationReason = "InvalidOp"
)

// TicketVerificationError is a flow-level failure from Redeem.
type TicketVerificationError struct {
	Reason TicketVerificationReason
}

func (e *TicketVerificationError) Error() string {
	return fmt.Sprintf("ticket: %s", e.Reason)
}
