// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SubgraphInput is one subgraph schema contributed to a composition request.
type SubgraphInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	SDL  string `json:"sdl"`
}

// CompositionRequest is the ordered list of subgraphs that shall be composed.
type CompositionRequest struct {
	Services []SubgraphInput `json:"services"`
}

// MalformedRequestError is returned by ParseCompositionRequest when the
// request body is not syntactically acceptable.
type MalformedRequestError struct {
	Inner error
}

// Error implements the builtin/error interface.
func (e MalformedRequestError) Error() string {
	return "malformed request body: " + e.Inner.Error()
}

// Unwrap implements the unnamed interface implied by package errors.
func (e MalformedRequestError) Unwrap() error {
	return e.Inner
}

// InvalidRequestError is returned by CompositionRequest.Validate when the
// request is well-formed but violates the request contract.
type InvalidRequestError struct {
	Message string
}

// Error implements the builtin/error interface.
func (e InvalidRequestError) Error() string {
	return e.Message
}

// ParseCompositionRequest decodes a request body. The schema registry sends a
// bare array of subgraphs, but an object of the form {"services":[...]} is
// accepted as well.
func ParseCompositionRequest(buf []byte) (CompositionRequest, error) {
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) == 0 {
		return CompositionRequest{}, MalformedRequestError{errors.New("empty body")}
	}

	var req CompositionRequest
	switch trimmed[0] {
	case '[':
		err := json.Unmarshal(trimmed, &req.Services)
		if err != nil {
			return CompositionRequest{}, MalformedRequestError{err}
		}
	case '{':
		var data struct {
			Services *[]SubgraphInput `json:"services"`
		}
		err := json.Unmarshal(trimmed, &data)
		if err != nil {
			return CompositionRequest{}, MalformedRequestError{err}
		}
		if data.Services == nil {
			return CompositionRequest{}, MalformedRequestError{errors.New(`missing "services" field`)}
		}
		req.Services = *data.Services
	default:
		return CompositionRequest{}, MalformedRequestError{errors.New("expected a JSON array or object")}
	}

	if req.Services == nil {
		req.Services = []SubgraphInput{}
	}
	return req, nil
}

// Validate checks that every subgraph has a name and that no name appears twice.
func (r CompositionRequest) Validate() error {
	seen := make(map[string]bool, len(r.Services))
	for idx, svc := range r.Services {
		if svc.Name == "" {
			return InvalidRequestError{fmt.Sprintf("subgraph at index %d has no name", idx)}
		}
		if seen[svc.Name] {
			return InvalidRequestError{fmt.Sprintf("duplicate subgraph name %q", svc.Name)}
		}
		seen[svc.Name] = true
	}
	return nil
}
