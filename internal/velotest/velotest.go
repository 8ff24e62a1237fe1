// Package velotest provides a fake transport.Dispatcher for exercising
// the flow engine without a live IdP.
package velotest

import (
	"context"
	"sync"
	"time"

	"github.com/IronVelo/cs-velo-sdk/transport"
)

// Handler answers one route's requests.
type Handler func(body []byte) transport.Response

// FakeDispatcher is an in-memory transport.Dispatcher driven entirely
// by registered Handler functions, one per route.
type FakeDispatcher struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
	healthy  bool
}

// NewFakeDispatcher returns a FakeDispatcher with no routes configured;
// unconfigured routes respond 500.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
		healthy:  true,
	}
}

// On registers h to answer route.
func (f *FakeDispatcher) On(route string, h Handler) *FakeDispatcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route] = h
	return f
}

// SetHealthy controls the result of Healthy.
func (f *FakeDispatcher) SetHealthy(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = ok
}

// Calls returns how many times route was dispatched.
func (f *FakeDispatcher) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *FakeDispatcher) dispatch(route string, body []byte) (transport.Response, error) {
	f.mu.Lock()
	h, ok := f.handlers[route]
	f.calls[route]++
	f.mu.Unlock()

	if !ok {
		return transport.Response{Status: 500, Body: []byte(`{}`)}, nil
	}
	return h(body), nil
}

// Dispatch implements transport.Dispatcher.
func (f *FakeDispatcher) Dispatch(ctx context.Context, route string, body []byte) (transport.Response, error) {
	return f.dispatch(route, body)
}

// DispatchRaw implements transport.Dispatcher.
func (f *FakeDispatcher) DispatchRaw(ctx context.Context, route string, body []byte) (transport.Response, error) {
	return f.dispatch(route, body)
}

// Healthy implements transport.Dispatcher.
func (f *FakeDispatcher) Healthy(ctx context.Context, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy, nil
}
