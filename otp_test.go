package velo

import "testing"

func TestParseSimpleOtp(t *testing.T) {
	if _, err := ParseSimpleOtp("123456"); err != nil {
		t.Fatalf("ParseSimpleOtp(123456) = %v, want ok", err)
	}

	_, err := ParseSimpleOtp("12345")
	oerr, ok := err.(*InvalidOtpError)
	if !ok || oerr.Kind != OtpInvalidLength {
		t.Fatalf("expected length error for 5 digits, got %v", err)
	}
	if oerr.Expected != 6 || oerr.Received != 5 {
		t.Fatalf("length error fields wrong: %+v", oerr)
	}

	_, err = ParseSimpleOtp("12345a")
	oerr, ok = err.(*InvalidOtpError)
	if !ok || oerr.Kind != OtpNonNumeric {
		t.Fatalf("expected non-numeric error, got %v", err)
	}
}

func TestParseTotp(t *testing.T) {
	if _, err := ParseTotp("12345678"); err != nil {
		t.Fatalf("ParseTotp(12345678) = %v, want ok", err)
	}

	_, err := ParseTotp("123456")
	oerr, ok := err.(*InvalidOtpError)
	if !ok || oerr.Kind != OtpInvalidLength {
		t.Fatalf("expected length error for 6 digits, got %v", err)
	}
	if oerr.Expected != 8 || oerr.Received != 6 {
		t.Fatalf("length error fields wrong: %+v", oerr)
	}

	_, err = ParseTotp("1234567x")
	if oerr, ok = err.(*InvalidOtpError); !ok || oerr.Kind != OtpNonNumeric {
		t.Fatalf("expected non-numeric error, got %v", err)
	}
}

func TestParseMfaKind(t *testing.T) {
	cases := map[string]MfaKind{
		"Totp":  MfaTotp,
		"totp":  MfaTotp,
		"TOTP":  MfaTotp,
		"Sms":   MfaSms,
		"sms":   MfaSms,
		"Email": MfaEmail,
		"EMAIL": MfaEmail,
	}
	for in, want := range cases {
		got, err := ParseMfaKind(in)
		if err != nil || got != want {
			t.Errorf("ParseMfaKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseMfaKind("carrier-pigeon"); err == nil {
		t.Fatalf("expected UnknownMfaKindError")
	}
}
