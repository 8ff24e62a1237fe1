// Package envelope implements the per-step request/response wire
// shape shared by every IdP call: a request carries state-specific
// args plus an optional permit, and a response carries an optional
// return value plus an optional (possibly rotated) permit.
package envelope

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/IronVelo/cs-velo-sdk/result"
)

// request is the wire shape of every non-ingress flow call.
type request struct {
	Args   interface{} `json:"args"`
	Permit *string     `json:"permit"`
}

// response is the wire shape of every flow call's reply.
type response struct {
	Ret    json.RawMessage `json:"ret"`
	Permit *string         `json:"permit"`
}

// Build marshals args and permit into the standard request envelope.
// permit may be nil for ingress calls that carry no continuation
// token yet.
func Build(args interface{}, permit *string) ([]byte, *RequestError) {
	body, err := json.Marshal(request{Args: args, Permit: permit})
	if err != nil {
		return nil, ErrDeserialization(errors.Wrap(err, "failed to encode request").Error())
	}
	return body, nil
}

// Decoded is an interpreted response: the raw `ret` payload (may be
// absent) and the permit the IdP returned for the next step, if any.
type Decoded struct {
	Ret    json.RawMessage
	Permit *string
}

// Decode interprets the HTTP status via InterpretStatus and, on
// 200 OK, unmarshals the envelope shape. Any other status returns its
// RequestError without reading the body; on 200 OK a failed JSON
// decode becomes ErrDeserialization.
func Decode(status int, body []byte) (Decoded, *RequestError) {
	if reqErr := InterpretStatus(status); reqErr != nil {
		return Decoded{}, reqErr
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Decoded{}, ErrDeserialization("malformed response body")
	}

	return Decoded{Ret: resp.Ret, Permit: resp.Permit}, nil
}

// ToResult converts a decoded response carrying at-most-one of an
// ok-slot or an err-slot into a result.Result, the generic shape every
// `ret` payload with a success/failure branch takes. A response
// populating both slots, or neither, is a deserialization error.
func ToResult[O, E any](ok *O, errVal *E) (result.Result[O, E], *RequestError) {
	switch {
	case ok != nil && errVal == nil:
		return result.Ok[O, E](*ok), nil
	case errVal != nil && ok == nil:
		return result.Err[O, E](*errVal), nil
	default:
		var zero result.Result[O, E]
		return zero, ErrDeserialization("response carried both or neither of its ok/err slots")
	}
}

// DecodeRet unmarshals raw into a value of type T, wrapping decode
// failures as ErrDeserialization.
func DecodeRet[T any](raw json.RawMessage) (T, *RequestError) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, ErrDeserialization("failed to decode response payload")
	}
	return v, nil
}
