// Package velo is the core of a client-side SDK that drives
// multi-step authentication, signup, account-recovery,
// account-deletion, and MFA-update flows against a remote identity
// provider (IdP).
//
// Every flow is modeled as a family of typed, explicitly enumerated
// states (see login.go, signup.go, migratelogin.go, delete.go,
// updatemfa.go, ticket.go). Each state owns a permit issued by the IdP
// and exposes only the transitions legal from that point in the
// protocol; a resumed state, reconstructed from its serialized form by
// one of the Resume* functions, behaves identically to the
// in-process state it was serialized from.
//
// Session tokens and recovery tickets (token.go) are affine: any call
// that accepts one invalidates it and, where the session continues,
// returns a replacement (revoking all sessions or confirming account
// deletion returns none). Using an already-consumed Token or Ticket
// panics.
//
// Flow-level failures (wrong OTP, wrong password, an MFA kind that
// cannot be removed, ...) are modeled with result.Result and
// result.FutureResult (see the result package) rather than a Go error
// return, because they are expected, typed, and require no special
// handling beyond branching on the returned state. Transport-level
// failures (malformed response, expired permit, internal IdP error)
// surface as *RequestError and terminate the current operation.
package velo
