package velo

import "testing"

func TestResumeLogin_RoundTrip(t *testing.T) {
	original := LoginInitMfa{permit: "perm-1", available: []MfaKind{MfaTotp, MfaSms}}
	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	resumed, err := ResumeLogin(data)
	if err != nil {
		t.Fatalf("ResumeLogin: %v", err)
	}

	got, ok := resumed.(LoginInitMfa)
	if !ok {
		t.Fatalf("resumed state has wrong type: %T", resumed)
	}
	if got.permit != original.permit || len(got.available) != 2 {
		t.Fatalf("resumed state lost data: %+v", got)
	}
}

func TestResumeLogin_UnknownStage(t *testing.T) {
	if _, err := ResumeLogin(`{"stage":"Bogus","permit":"p"}`); err == nil {
		t.Fatalf("expected an error for an unrecognized stage tag")
	}
}

func TestResumeSignup_EveryStageRoundTrips(t *testing.T) {
	uri := "otpauth://totp/x"
	states := []SignupState{
		SignupSetPassword{permit: "p"},
		SignupSetupFirstMfa{permit: "p"},
		SignupVerifyMfaSetup{permit: "p", kind: MfaSms},
		SignupVerifyTotpSetup{permit: "p", uri: &uri},
		SignupNewMfaOrFinalize{permit: "p", alreadySetup: []MfaKind{MfaTotp}},
	}

	for _, s := range states {
		data, err := s.(interface{ Serialize() (string, error) }).Serialize()
		if err != nil {
			t.Fatalf("Serialize(%T): %v", s, err)
		}
		resumed, err := ResumeSignup(data)
		if err != nil {
			t.Fatalf("ResumeSignup(%T): %v", s, err)
		}
		if resumed == nil {
			t.Fatalf("ResumeSignup(%T) returned nil", s)
		}
	}
}

func TestResumeMigrateLogin_EveryStageRoundTrips(t *testing.T) {
	uri := "otpauth://totp/x"
	states := []MigrateLoginState{
		MigrateLoginSetupFirstMfa{permit: "p"},
		MigrateLoginVerifyMfaSetup{permit: "p", kind: MfaSms, already: []MfaKind{MfaTotp}},
		MigrateLoginVerifyTotpSetup{permit: "p", uri: &uri},
		MigrateLoginNewMfaOrLogin{permit: "p", alreadySetup: []MfaKind{MfaTotp, MfaSms}},
	}

	for _, s := range states {
		data, err := s.(interface{ Serialize() (string, error) }).Serialize()
		if err != nil {
			t.Fatalf("Serialize(%T): %v", s, err)
		}
		resumed, err := ResumeMigrateLogin(data)
		if err != nil {
			t.Fatalf("ResumeMigrateLogin(%T): %v", s, err)
		}
		if resumed == nil {
			t.Fatalf("ResumeMigrateLogin(%T) returned nil", s)
		}
	}
}

func TestResumeUpdateMfa_EveryStageRoundTrips(t *testing.T) {
	uri := "otpauth://totp/x"
	old := []MfaKind{MfaTotp, MfaSms}
	states := []UpdateMfaState{
		UpdateMfaStartUpdate{permit: "p", oldMfa: old},
		UpdateMfaCheckOtp{permit: "p", oldMfa: old},
		UpdateMfaCheckTotp{permit: "p", oldMfa: old},
		UpdateMfaDecide{permit: "p", oldMfa: old},
		UpdateMfaFinalizeRemoval{permit: "p", oldMfa: old},
		UpdateMfaEnsureOtpSetup{permit: "p", kind: MfaEmail, oldMfa: old},
		UpdateMfaEnsureTotpSetup{permit: "p", uri: &uri, oldMfa: old},
		UpdateMfaFinalizeUpdate{permit: "p", oldMfa: old},
	}

	for _, s := range states {
		data, err := s.(interface{ Serialize() (string, error) }).Serialize()
		if err != nil {
			t.Fatalf("Serialize(%T): %v", s, err)
		}
		resumed, err := ResumeUpdateMfa(data)
		if err != nil {
			t.Fatalf("ResumeUpdateMfa(%T): %v", s, err)
		}
		if resumed == nil {
			t.Fatalf("ResumeUpdateMfa(%T) returned nil", s)
		}
	}
}

func TestResumeSignup_VerifyStagePreservesAlreadySetup(t *testing.T) {
	original := SignupVerifyMfaSetup{permit: "p", kind: MfaSms, already: []MfaKind{MfaTotp}}
	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	resumed, err := ResumeSignup(data)
	if err != nil {
		t.Fatalf("ResumeSignup: %v", err)
	}
	got, ok := resumed.(SignupVerifyMfaSetup)
	if !ok {
		t.Fatalf("resumed state has wrong type: %T", resumed)
	}
	if len(got.already) != 1 || got.already[0] != MfaTotp {
		t.Fatalf("already-setup kinds lost across serialization: %+v", got.already)
	}
}

func TestResumeDelete_PreservesToken(t *testing.T) {
	token := NewToken([]byte("sealed-bytes"))
	original := DeleteConfirmPassword{permit: "p", token: token}
	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	resumed, err := ResumeDelete(data)
	if err != nil {
		t.Fatalf("ResumeDelete: %v", err)
	}
	got, ok := resumed.(DeleteConfirmPassword)
	if !ok {
		t.Fatalf("resumed state has wrong type: %T", resumed)
	}
	if string(got.token.sealed) != "sealed-bytes" {
		t.Fatalf("token bytes lost across serialization: %q", got.token.sealed)
	}
}

func TestResumeTicket_EveryStageRoundTrips(t *testing.T) {
	uri := "otpauth://totp/x"
	states := []TicketState{
		VerifiedTicket{permit: "p", operation: RecoveryResetPassword},
		TicketResetPassword{permit: "p", operation: RecoveryResetAll},
		TicketSetupMfa{permit: "p"},
		TicketVerifyMfaSetup{permit: "p", kind: MfaEmail},
		TicketVerifyTotpSetup{permit: "p", uri: &uri},
		TicketCompleteRecovery{permit: "p"},
	}

	for _, s := range states {
		data, err := s.(interface{ Serialize() (string, error) }).Serialize()
		if err != nil {
			t.Fatalf("Serialize(%T): %v", s, err)
		}
		resumed, err := ResumeTicket(data)
		if err != nil {
			t.Fatalf("ResumeTicket(%T): %v", s, err)
		}
		if resumed == nil {
			t.Fatalf("ResumeTicket(%T) returned nil", s)
		}
	}
}
