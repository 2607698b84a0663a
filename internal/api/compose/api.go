// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package composeapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/errext"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
	"github.com/sapcc/compositor/internal/signature"
)

// Composer is the part of processor.Processor that this API needs.
type Composer interface {
	Compose(ctx context.Context, req compositor.CompositionRequest) (compositor.CompositionResult, error)
}

var _ Composer = &processor.Processor{}

// API contains state variables used by the composition webhook.
type API struct {
	cfg      compositor.Configuration
	verifier *signature.Verifier
	composer Composer
}

// NewAPI constructs a new API instance.
func NewAPI(cfg compositor.Configuration, verifier *signature.Verifier, composer Composer) *API {
	return &API{cfg, verifier, composer}
}

// AddTo implements the api.API interface.
func (a *API) AddTo(r *mux.Router) {
	r.Methods("GET").Path("/").HandlerFunc(a.handleGetRoot)
	r.Methods("OPTIONS").Path("/api/compose").HandlerFunc(a.handleOptionsCompose)
	r.Methods("POST").Path("/api/compose").HandlerFunc(a.handlePostCompose)
}

func (a *API) handleGetRoot(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/")
	httpapi.SkipRequestLog(r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello world"))
}

func (a *API) handleOptionsCompose(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/api/compose")
	w.WriteHeader(http.StatusOK)
}

func (a *API) handlePostCompose(w http.ResponseWriter, r *http.Request) {
	httpapi.IdentifyEndpoint(r, "/api/compose")

	// the signature covers the exact bytes on the wire, so we need the raw body
	// before any decoding happens
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxRequestBodyBytes))
	if err != nil {
		rejectedRequestsCounter.WithLabelValues("malformed").Inc()
		if _, ok := errext.As[*http.MaxBytesError](err); ok {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "cannot read request body: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	err = a.verifier.Verify(body, r.Header.Get(signature.HeaderName))
	if err != nil {
		rejectedRequestsCounter.WithLabelValues("signature").Inc()
		logg.Info("rejecting composition request from %s: %s", r.RemoteAddr, err.Error())
		respondwith.ErrorText(w, err)
		return
	}

	req, err := compositor.ParseCompositionRequest(body)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		rejectedRequestsCounter.WithLabelValues("malformed").Inc()
		http.Error(w, err.Error(), statusForRequestError(err))
		return
	}

	result, err := a.composer.Compose(r.Context(), req)
	if err != nil {
		logg.Error("cannot answer composition request: %s", err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// composition failures are still a successful response
	respondwith.JSON(w, http.StatusOK, result)
}

func statusForRequestError(err error) int {
	var ire compositor.InvalidRequestError
	if errors.As(err, &ire) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}
