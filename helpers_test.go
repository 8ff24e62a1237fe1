package velo

import (
	"github.com/IronVelo/cs-velo-sdk/internal/velotest"
	"github.com/IronVelo/cs-velo-sdk/transport"
)

// envBody builds a raw envelope response body: ret is embedded
// verbatim as JSON (use "null" for no return value), permit is sent as
// JSON null when empty.
func envBody(ret string, permit string) []byte {
	if permit == "" {
		return []byte(`{"ret":` + ret + `,"permit":null}`)
	}
	return []byte(`{"ret":` + ret + `,"permit":"` + permit + `"}`)
}

func okResp(ret string, permit string) transport.Response {
	return transport.Response{Status: 200, Body: envBody(ret, permit)}
}

func newTestClient(d *velotest.FakeDispatcher) *Client {
	return NewClient("", 0, WithDispatcher(d))
}
