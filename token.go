package velo

import (
	"sync"

	"github.com/IronVelo/cs-velo-sdk/b64ct"
)

// affine is the shared moved-into-method guard for Token and Ticket:
// every operation that consumes one of these calls consume, which
// panics if it has already fired. Because the flag lives behind a
// pointer, it is shared across copies of the owning value, so passing
// a Token by value does not defeat the guard.
type affine struct {
	mu       sync.Mutex
	consumed bool
}

func (a *affine) consume(what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consumed {
		panic("velo: " + what + " used more than once")
	}
	a.consumed = true
}

// Token is an affine, base64-encoded sealed session blob. The SDK
// never inspects its contents. Any call that accepts a Token consumes
// it; the same Token value must not be passed to a second call.
type Token struct {
	sealed []byte
	guard  *affine
}

// NewToken wraps a sealed byte blob as received from the IdP.
func NewToken(sealed []byte) Token {
	return Token{sealed: sealed, guard: &affine{}}
}

// consume invalidates the token and returns its sealed bytes. Calling
// consume twice on copies of the same Token panics.
func (t Token) consume() []byte {
	t.guard.consume("Token")
	return t.sealed
}

// MarshalJSON encodes the token as constant-time unpadded Base64.
func (t Token) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b64ct.EncodeCT(t.sealed) + `"`), nil
}

// UnmarshalJSON decodes a constant-time unpadded Base64 token.
func (t *Token) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) >= 2 && data[0] == '"' {
		s = string(data[1 : len(data)-1])
	}
	sealed, err := b64ct.DecodeCT(s)
	if err != nil {
		return err
	}
	*t = NewToken(sealed)
	return nil
}

// Ticket is a recovery permit: structurally identical to a Token but
// single-use across processes. The IdP invalidates it on redemption,
// and the client mirrors that with the same affine guard locally.
type Ticket struct {
	sealed []byte
	guard  *affine
}

// NewTicket wraps a sealed byte blob as issued by a privileged user.
func NewTicket(sealed []byte) Ticket {
	return Ticket{sealed: sealed, guard: &affine{}}
}

func (t Ticket) consume() []byte {
	t.guard.consume("Ticket")
	return t.sealed
}

// MarshalJSON encodes the ticket as constant-time unpadded Base64.
func (t Ticket) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b64ct.EncodeCT(t.sealed) + `"`), nil
}

// UnmarshalJSON decodes a constant-time unpadded Base64 ticket.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) >= 2 && data[0] == '"' {
		s = string(data[1 : len(data)-1])
	}
	sealed, err := b64ct.DecodeCT(s)
	if err != nil {
		return err
	}
	*t = NewTicket(sealed)
	return nil
}

// decodeTokenString constant-time-decodes a sealed token/ticket
// carried in a permit slot. Sealed blobs always travel through the
// constant-time codec, never the table-driven one.
func decodeTokenString(s string) ([]byte, error) {
	return b64ct.DecodeCT(s)
}

// encodeTokenString constant-time-encodes sealed bytes for a permit
// slot repurposed to carry a token/ticket, the mirror of decodeTokenString.
func encodeTokenString(sealed []byte) string {
	return b64ct.EncodeCT(sealed)
}

// PeekedToken is returned by Client.CheckToken: verifying a Token
// simultaneously rotates it. NewToken must be used for any subsequent
// request; the original Token passed to CheckToken is dead regardless
// of whether the caller uses NewToken.
type PeekedToken struct {
	UserID   string
	NewToken Token
}
