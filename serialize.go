package velo

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Every state in every flow can be marshaled to a self-contained JSON
// record and reconstructed by the matching flow's Resume function,
// which exhaustively switches on the record's stage discriminator. A
// resumed state supports exactly the same operations, over the same
// wire protocol, as the in-process state it was serialized from;
// nothing here talks to the IdP.
//
// Each Resume function returns the flow's state interface, implemented
// by every one of that flow's concrete stage types; callers type-
// switch on the result to recover the concrete stage (the same
// pattern callers already use on Result's Ok/Err branches).

func marshalState(v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "velo: failed to serialize state")
	}
	return string(body), nil
}

func unmarshalState(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return errors.Wrap(err, "velo: failed to deserialize state")
	}
	return nil
}

// --- Login ---------------------------------------------------------------

// LoginState is implemented by every stage of the Login flow
// (LoginInitMfa, LoginRetryInitMfa, LoginVerifyMfa, LoginVerifyTotp).
type LoginState interface {
	loginState()
}

func (LoginInitMfa) loginState()      {}
func (LoginRetryInitMfa) loginState() {}
func (LoginVerifyMfa) loginState()    {}
func (LoginVerifyTotp) loginState()   {}

type loginStateRecord struct {
	Stage     string    `json:"stage"`
	Permit    string    `json:"permit"`
	Available []MfaKind `json:"available_mfa,omitempty"`
	Kind      *MfaKind  `json:"kind,omitempty"`
}

// Serialize captures s as a resumable record.
func (s LoginInitMfa) Serialize() (string, error) {
	return marshalState(loginStateRecord{Stage: "InitMfa", Permit: s.permit, Available: s.available})
}

// Serialize captures s as a resumable record.
func (s LoginRetryInitMfa) Serialize() (string, error) {
	return marshalState(loginStateRecord{Stage: "RetryInitMfa", Permit: s.permit, Available: s.available})
}

// Serialize captures s as a resumable record.
func (s LoginVerifyMfa) Serialize() (string, error) {
	k := s.kind
	return marshalState(loginStateRecord{Stage: "VerifyOtp", Permit: s.permit, Kind: &k})
}

// Serialize captures s as a resumable record.
func (s LoginVerifyTotp) Serialize() (string, error) {
	return marshalState(loginStateRecord{Stage: "VerifyTotp", Permit: s.permit})
}

// ResumeLogin reconstructs a Login flow state from data previously
// produced by one of its Serialize methods.
func ResumeLogin(data string) (LoginState, error) {
	var rec loginStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "InitMfa":
		return LoginInitMfa{permit: rec.Permit, available: rec.Available}, nil
	case "RetryInitMfa":
		return LoginRetryInitMfa{permit: rec.Permit, available: rec.Available}, nil
	case "VerifyOtp":
		if rec.Kind == nil {
			return nil, fmt.Errorf("velo: login state %q missing kind", rec.Stage)
		}
		return LoginVerifyMfa{permit: rec.Permit, kind: *rec.Kind}, nil
	case "VerifyTotp":
		return LoginVerifyTotp{permit: rec.Permit}, nil
	default:
		return nil, fmt.Errorf("velo: unknown login stage %q", rec.Stage)
	}
}

// --- Signup ----------------------------------------------------------------

// SignupState is implemented by every stage of the Signup flow.
type SignupState interface {
	signupState()
}

func (SignupSetPassword) signupState()      {}
func (SignupSetupFirstMfa) signupState()    {}
func (SignupVerifyMfaSetup) signupState()   {}
func (SignupVerifyTotpSetup) signupState()  {}
func (SignupNewMfaOrFinalize) signupState() {}

type signupStateRecord struct {
	Stage        string    `json:"stage"`
	Permit       string    `json:"permit"`
	AlreadySetup []MfaKind `json:"already_setup,omitempty"`
	Kind         *MfaKind  `json:"current_mfa,omitempty"`
	URI          *string   `json:"uri,omitempty"`
}

// Serialize captures s as a resumable record.
func (s SignupSetPassword) Serialize() (string, error) {
	return marshalState(signupStateRecord{Stage: "Password", Permit: s.permit})
}

// Serialize captures s as a resumable record.
func (s SignupSetupFirstMfa) Serialize() (string, error) {
	return marshalState(signupStateRecord{Stage: "SetupFirstMfa", Permit: s.permit})
}

// Serialize captures s as a resumable record.
func (s SignupVerifyMfaSetup) Serialize() (string, error) {
	k := s.kind
	return marshalState(signupStateRecord{Stage: "VerifyOtpSetup", Permit: s.permit, Kind: &k, AlreadySetup: s.already})
}

// Serialize captures s as a resumable record.
func (s SignupVerifyTotpSetup) Serialize() (string, error) {
	k := MfaTotp
	return marshalState(signupStateRecord{Stage: "VerifyTotpSetup", Permit: s.permit, Kind: &k, URI: s.uri, AlreadySetup: s.already})
}

// Serialize captures s as a resumable record.
func (s SignupNewMfaOrFinalize) Serialize() (string, error) {
	return marshalState(signupStateRecord{Stage: "SetupMfaOrFinalize", Permit: s.permit, AlreadySetup: s.alreadySetup})
}

// ResumeSignup reconstructs a Signup flow state from data previously
// produced by one of its Serialize methods.
func ResumeSignup(data string) (SignupState, error) {
	var rec signupStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "Password":
		return SignupSetPassword{permit: rec.Permit}, nil
	case "SetupFirstMfa":
		return SignupSetupFirstMfa{permit: rec.Permit}, nil
	case "VerifyOtpSetup":
		if rec.Kind == nil {
			return nil, fmt.Errorf("velo: signup state %q missing current_mfa", rec.Stage)
		}
		return SignupVerifyMfaSetup{permit: rec.Permit, kind: *rec.Kind, already: rec.AlreadySetup}, nil
	case "VerifyTotpSetup":
		return SignupVerifyTotpSetup{permit: rec.Permit, uri: rec.URI, already: rec.AlreadySetup}, nil
	case "SetupMfaOrFinalize":
		return SignupNewMfaOrFinalize{permit: rec.Permit, alreadySetup: rec.AlreadySetup}, nil
	default:
		return nil, fmt.Errorf("velo: unknown signup stage %q", rec.Stage)
	}
}

// --- MigrateLogin ------------------------------------------------------------

// MigrateLoginState is implemented by every stage of the MigrateLogin flow.
type MigrateLoginState interface {
	migrateLoginState()
}

func (MigrateLoginSetupFirstMfa) migrateLoginState()   {}
func (MigrateLoginVerifyMfaSetup) migrateLoginState()  {}
func (MigrateLoginVerifyTotpSetup) migrateLoginState() {}
func (MigrateLoginNewMfaOrLogin) migrateLoginState()   {}

type migrateLoginStateRecord struct {
	Stage        string    `json:"stage"`
	Permit       string    `json:"permit"`
	AlreadySetup []MfaKind `json:"already_setup,omitempty"`
	Kind         *MfaKind  `json:"current_mfa,omitempty"`
	URI          *string   `json:"uri,omitempty"`
}

// Serialize captures s as a resumable record.
func (s MigrateLoginSetupFirstMfa) Serialize() (string, error) {
	return marshalState(migrateLoginStateRecord{Stage: "SetupFirstMfa", Permit: s.permit})
}

// Serialize captures s as a resumable record.
func (s MigrateLoginVerifyMfaSetup) Serialize() (string, error) {
	k := s.kind
	return marshalState(migrateLoginStateRecord{Stage: "VerifyOtpSetup", Permit: s.permit, Kind: &k, AlreadySetup: s.already})
}

// Serialize captures s as a resumable record.
func (s MigrateLoginVerifyTotpSetup) Serialize() (string, error) {
	k := MfaTotp
	return marshalState(migrateLoginStateRecord{Stage: "VerifyTotpSetup", Permit: s.permit, Kind: &k, URI: s.uri, AlreadySetup: s.already})
}

// Serialize captures s as a resumable record.
func (s MigrateLoginNewMfaOrLogin) Serialize() (string, error) {
	return marshalState(migrateLoginStateRecord{Stage: "NewMfaOrLogin", Permit: s.permit, AlreadySetup: s.alreadySetup})
}

// ResumeMigrateLogin reconstructs a MigrateLogin flow state from data
// previously produced by one of its Serialize methods.
func ResumeMigrateLogin(data string) (MigrateLoginState, error) {
	var rec migrateLoginStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "SetupFirstMfa":
		return MigrateLoginSetupFirstMfa{permit: rec.Permit}, nil
	case "VerifyOtpSetup":
		if rec.Kind == nil {
			return nil, fmt.Errorf("velo: migratelogin state %q missing current_mfa", rec.Stage)
		}
		return MigrateLoginVerifyMfaSetup{permit: rec.Permit, kind: *rec.Kind, already: rec.AlreadySetup}, nil
	case "VerifyTotpSetup":
		return MigrateLoginVerifyTotpSetup{permit: rec.Permit, uri: rec.URI, already: rec.AlreadySetup}, nil
	case "NewMfaOrLogin":
		return MigrateLoginNewMfaOrLogin{permit: rec.Permit, alreadySetup: rec.AlreadySetup}, nil
	default:
		return nil, fmt.Errorf("velo: unknown migratelogin stage %q", rec.Stage)
	}
}

// --- Delete ------------------------------------------------------------------

// DeleteState is implemented by every stage of the Delete flow.
type DeleteState interface {
	deleteState()
}

func (DeleteConfirmPassword) deleteState() {}
func (DeleteConfirmDeletion) deleteState() {}

type deleteStateRecord struct {
	Stage  string `json:"stage"`
	Permit string `json:"permit"`
	Token  Token  `json:"token"`
}

// Serialize captures s as a resumable record. Because Token is
// affine, serializing s implicitly hands off ownership: deserializing
// the result and the original s must not both be used.
func (s DeleteConfirmPassword) Serialize() (string, error) {
	return marshalState(deleteStateRecord{Stage: "ConfirmPassword", Permit: s.permit, Token: s.token})
}

// Serialize captures s as a resumable record (see DeleteConfirmPassword.Serialize).
func (s DeleteConfirmDeletion) Serialize() (string, error) {
	return marshalState(deleteStateRecord{Stage: "ConfirmDeletion", Permit: s.permit, Token: s.token})
}

// ResumeDelete reconstructs a Delete flow state from data previously
// produced by one of its Serialize methods.
func ResumeDelete(data string) (DeleteState, error) {
	var rec deleteStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "ConfirmPassword":
		return DeleteConfirmPassword{permit: rec.Permit, token: rec.Token}, nil
	case "ConfirmDeletion":
		return DeleteConfirmDeletion{permit: rec.Permit, token: rec.Token}, nil
	default:
		return nil, fmt.Errorf("velo: unknown delete stage %q", rec.Stage)
	}
}

// --- UpdateMfa -----------------------------------------------------------------

// UpdateMfaState is implemented by every stage of the UpdateMfa flow.
type UpdateMfaState interface {
	updateMfaState()
}

func (UpdateMfaStartUpdate) updateMfaState()     {}
func (UpdateMfaCheckOtp) updateMfaState()        {}
func (UpdateMfaCheckTotp) updateMfaState()       {}
func (UpdateMfaDecide) updateMfaState()          {}
func (UpdateMfaFinalizeRemoval) updateMfaState() {}
func (UpdateMfaEnsureOtpSetup) updateMfaState()  {}
func (UpdateMfaEnsureTotpSetup) updateMfaState() {}
func (UpdateMfaFinalizeUpdate) updateMfaState()  {}

type updateMfaStateRecord struct {
	Stage  string    `json:"stage"`
	Permit string    `json:"permit"`
	OldMfa []MfaKind `json:"old_mfa,omitempty"`
	Kind   *MfaKind  `json:"kind,omitempty"`
	URI    *string   `json:"uri,omitempty"`
}

// Serialize captures s as a resumable record.
func (s UpdateMfaStartUpdate) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "StartUpdate", Permit: s.permit, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaCheckOtp) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "CheckOtp", Permit: s.permit, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaCheckTotp) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "CheckTotp", Permit: s.permit, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaDecide) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "Decide", Permit: s.permit, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaFinalizeRemoval) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "FinalizeRemoval", Permit: s.permit, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaEnsureOtpSetup) Serialize() (string, error) {
	k := s.kind
	return marshalState(updateMfaStateRecord{Stage: "EnsureOtpSetup", Permit: s.permit, Kind: &k, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaEnsureTotpSetup) Serialize() (string, error) {
	k := MfaTotp
	return marshalState(updateMfaStateRecord{Stage: "EnsureTotpSetup", Permit: s.permit, Kind: &k, URI: s.uri, OldMfa: s.oldMfa})
}

// Serialize captures s as a resumable record.
func (s UpdateMfaFinalizeUpdate) Serialize() (string, error) {
	return marshalState(updateMfaStateRecord{Stage: "FinalizeUpdate", Permit: s.permit, OldMfa: s.oldMfa})
}

// ResumeUpdateMfa reconstructs an UpdateMfa flow state from data
// previously produced by one of its Serialize methods.
func ResumeUpdateMfa(data string) (UpdateMfaState, error) {
	var rec updateMfaStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "StartUpdate":
		return UpdateMfaStartUpdate{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	case "CheckOtp":
		return UpdateMfaCheckOtp{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	case "CheckTotp":
		return UpdateMfaCheckTotp{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	case "Decide":
		return UpdateMfaDecide{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	case "FinalizeRemoval":
		return UpdateMfaFinalizeRemoval{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	case "EnsureOtpSetup":
		if rec.Kind == nil {
			return nil, fmt.Errorf("velo: updatemfa state %q missing kind", rec.Stage)
		}
		return UpdateMfaEnsureOtpSetup{permit: rec.Permit, kind: *rec.Kind, oldMfa: rec.OldMfa}, nil
	case "EnsureTotpSetup":
		return UpdateMfaEnsureTotpSetup{permit: rec.Permit, uri: rec.URI, oldMfa: rec.OldMfa}, nil
	case "FinalizeUpdate":
		return UpdateMfaFinalizeUpdate{permit: rec.Permit, oldMfa: rec.OldMfa}, nil
	default:
		return nil, fmt.Errorf("velo: unknown updatemfa stage %q", rec.Stage)
	}
}

// --- Ticket ------------------------------------------------------------------

// TicketState is implemented by every stage of the Ticket recovery
// flow, including the finer-grained verification sub-states that
// signup/migratelogin also distinguish (VerifyMfaSetup vs the bare
// SetupMfa offer): retries at the verification step must not
// re-render a TOTP provisioning URI.
type TicketState interface {
	ticketState()
}

func (VerifiedTicket) ticketState()         {}
func (TicketResetPassword) ticketState()    {}
func (TicketSetupMfa) ticketState()         {}
func (TicketVerifyMfaSetup) ticketState()   {}
func (TicketVerifyTotpSetup) ticketState()  {}
func (TicketCompleteRecovery) ticketState() {}

type ticketStateRecord struct {
	Stage     string      `json:"stage"`
	Permit    string      `json:"permit"`
	Operation *RecoveryOp `json:"operation,omitempty"`
	Kind      *MfaKind    `json:"kind,omitempty"`
	URI       *string     `json:"uri,omitempty"`
}

// Serialize captures s as a resumable record.
func (s VerifiedTicket) Serialize() (string, error) {
	op := s.operation
	return marshalState(ticketStateRecord{Stage: "VerifiedTicket", Permit: s.permit, Operation: &op})
}

// Serialize captures s as a resumable record.
func (s TicketResetPassword) Serialize() (string, error) {
	op := s.operation
	return marshalState(ticketStateRecord{Stage: "ResetPassword", Permit: s.permit, Operation: &op})
}

// Serialize captures s as a resumable record.
func (s TicketSetupMfa) Serialize() (string, error) {
	return marshalState(ticketStateRecord{Stage: "SetupMfa", Permit: s.permit})
}

// Serialize captures s as a resumable record.
func (s TicketVerifyMfaSetup) Serialize() (string, error) {
	k := s.kind
	return marshalState(ticketStateRecord{Stage: "VerifyMfaSetup", Permit: s.permit, Kind: &k})
}

// Serialize captures s as a resumable record.
func (s TicketVerifyTotpSetup) Serialize() (string, error) {
	k := MfaTotp
	return marshalState(ticketStateRecord{Stage: "VerifyTotpSetup", Permit: s.permit, Kind: &k, URI: s.uri})
}

// Serialize captures s as a resumable record.
func (s TicketCompleteRecovery) Serialize() (string, error) {
	return marshalState(ticketStateRecord{Stage: "CompleteRecovery", Permit: s.permit})
}

// ResumeTicket reconstructs a Ticket recovery flow state from data
// previously produced by one of its Serialize methods.
func ResumeTicket(data string) (TicketState, error) {
	var rec ticketStateRecord
	if err := unmarshalState(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Stage {
	case "VerifiedTicket":
		if rec.Operation == nil {
			return nil, fmt.Errorf("velo: ticket state %q missing operation", rec.Stage)
		}
		return VerifiedTicket{permit: rec.Permit, operation: *rec.Operation}, nil
	case "ResetPassword":
		if rec.Operation == nil {
			return nil, fmt.Errorf("velo: ticket state %q missing operation", rec.Stage)
		}
		return TicketResetPassword{permit: rec.Permit, operation: *rec.Operation}, nil
	case "SetupMfa":
		return TicketSetupMfa{permit: rec.Permit}, nil
	case "VerifyMfaSetup":
		if rec.Kind == nil {
			return nil, fmt.Errorf("velo: ticket state %q missing kind", rec.Stage)
		}
		return TicketVerifyMfaSetup{permit: rec.Permit, kind: *rec.Kind}, nil
	case "VerifyTotpSetup":
		return TicketVerifyTotpSetup{permit: rec.Permit, uri: rec.URI}, nil
	case "CompleteRecovery":
		return TicketCompleteRecovery{permit: rec.Permit}, nil
	default:
		return nil, fmt.Errorf("velo: unknown ticket stage %q", rec.Stage)
	}
}
