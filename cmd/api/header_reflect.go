// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package apicmd

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/errext"

	"github.com/sapcc/compositor/internal/signature"
)

// headerReflector is an httpapi.API that implements the POST /debug/reflect-headers endpoint.
// It helps with finding out whether a proxy between the sender and us mangles
// the request headers or body.
type headerReflector struct {
	Enabled             bool // usually only on dev/QA systems
	Verifier            *signature.Verifier
	MaxRequestBodyBytes int64
}

// AddTo implements the httpapi.API interface.
func (hr *headerReflector) AddTo(r *mux.Router) {
	if hr.Enabled {
		r.Methods("POST").Path("/debug/reflect-headers").HandlerFunc(hr.reflectHeaders)
	}
}

func (hr *headerReflector) reflectHeaders(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, hr.MaxRequestBodyBytes))
	if err != nil {
		if _, ok := errext.As[*http.MaxBytesError](err); ok {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "cannot read request body: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	// echo all request headers into the response body
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	for _, headerName := range slices.Sorted(maps.Keys(r.Header)) {
		vals := r.Header[headerName]
		for _, val := range vals {
			fmt.Fprintf(w, "Request %s: %s\n", headerName, val)
		}
	}
	fmt.Fprintf(w, "Body length: %d\n", len(body))

	err = hr.Verifier.Verify(body, r.Header.Get(signature.HeaderName))
	if err == nil {
		fmt.Fprintln(w, "Signature: valid")
	} else {
		fmt.Fprintf(w, "Signature: %s\n", err.Error())
	}
}
