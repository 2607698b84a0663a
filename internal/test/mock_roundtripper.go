// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"net/http"
	"net/http/httptest"
)

// RoundTripper is a http.RoundTripper that redirects some hosts to
// http.Handler instances, e.g. to point the health monitor at a Setup.Handler.
type RoundTripper struct {
	Handlers map[string]http.Handler
	// number of requests that were served by one of the Handlers
	InterceptedRequests int
}

var originalDefaultTransport http.RoundTripper

// WithRoundTripper sets up a RoundTripper instance as the default HTTP
// transport for the duration of the given action.
func WithRoundTripper(action func(*RoundTripper)) {
	if originalDefaultTransport != nil {
		panic("WithRoundTripper calls may not be nested")
	}

	t := RoundTripper{Handlers: make(map[string]http.Handler)}
	originalDefaultTransport = http.DefaultTransport
	http.DefaultTransport = &t
	// deferred so that the transport is restored even if action() calls t.Fatal()
	defer func() {
		http.DefaultTransport = originalDefaultTransport
		originalDefaultTransport = nil
	}()

	action(&t)
}

// RoundTrip implements the http.RoundTripper interface.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	h := t.Handlers[req.URL.Host]
	if h == nil {
		return originalDefaultTransport.RoundTrip(req)
	}
	t.InterceptedRequests++

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result(), nil
}
