// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/cors"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/logg"

	composeapi "github.com/sapcc/compositor/internal/api/compose"
	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/signature"
)

// CORSOptions are the CORS settings for all endpoints. The signature header
// must be allowed, or browser-originated requests cannot deliver it.
var CORSOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"GET", "OPTIONS", "PATCH", "DELETE", "POST", "PUT"},
	AllowedHeaders: []string{
		"X-CSRF-Token",
		"X-Requested-With",
		"Accept",
		"Accept-Version",
		"Content-Length",
		"Content-MD5",
		"Content-Type",
		"Date",
		"X-Api-Version",
		signature.HeaderName,
	},
	AllowCredentials:     true,
	OptionsSuccessStatus: http.StatusOK,
}

// NewHandler constructs the http.Handler serving all compositor endpoints
// except for /metrics. Additional APIs (e.g. debug endpoints) can be mounted
// into the same router.
func NewHandler(cfg compositor.Configuration, verifier *signature.Verifier, composer composeapi.Composer, additionalAPIs ...httpapi.API) http.Handler {
	corsMiddleware := cors.New(CORSOptions)
	apis := []httpapi.API{
		composeapi.NewAPI(cfg, verifier, composer),
		httpapi.HealthCheckAPI{SkipRequestLog: true},
	}
	apis = append(apis, additionalAPIs...)
	apis = append(apis,
		httpapi.WithGlobalMiddleware(recoverPanics),
		httpapi.WithGlobalMiddleware(corsMiddleware.Handler),
	)
	return httpapi.Compose(apis...)
}

// recoverPanics turns panics in request handlers into 500 responses.
func recoverPanics(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				recoveredPanicsCounter.Inc()
				logg.Error("panic during %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		inner.ServeHTTP(w, r)
	})
}
