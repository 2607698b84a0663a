// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorSource classifies where a CompositionError originated.
type ErrorSource string

const (
	// SourceComposition is used for errors produced by federation-specific
	// validation. These errors carry a machine-readable error code.
	SourceComposition ErrorSource = "composition"
	// SourceGraphQL is used for general GraphQL parse or validation errors.
	SourceGraphQL ErrorSource = "graphql"
)

// IsValid returns whether this is one of the known error sources.
func (s ErrorSource) IsValid() bool {
	return s == SourceComposition || s == SourceGraphQL
}

// CompositionError appears in a CompositionFailure.
type CompositionError struct {
	Message string      `json:"message"`
	Source  ErrorSource `json:"source"`
}

// ResultType is the discriminator of the CompositionResult JSON encoding.
type ResultType string

const (
	ResultTypeSuccess ResultType = "success"
	ResultTypeFailure ResultType = "failure"
)

// CompositionOutcome is implemented by CompositionSuccess and
// CompositionFailure. No other types may implement it.
type CompositionOutcome interface {
	ResultType() ResultType
	isCompositionOutcome()
}

// CompositionSuccess is the CompositionOutcome for a successful composition.
type CompositionSuccess struct {
	Supergraph string `json:"supergraph"`
	SDL        string `json:"sdl"`
}

// ResultType implements the CompositionOutcome interface.
func (CompositionSuccess) ResultType() ResultType { return ResultTypeSuccess }
func (CompositionSuccess) isCompositionOutcome()  {}

// CompositionFailure is the CompositionOutcome for a failed composition.
type CompositionFailure struct {
	Errors []CompositionError `json:"errors"`
}

// ResultType implements the CompositionOutcome interface.
func (CompositionFailure) ResultType() ResultType { return ResultTypeFailure }
func (CompositionFailure) isCompositionOutcome()  {}

// CompositionResult is what the compose endpoint responds with. It holds
// exactly one CompositionOutcome.
type CompositionResult struct {
	Outcome CompositionOutcome
}

// Succeeded builds a CompositionResult holding a CompositionSuccess.
func Succeeded(supergraph, sdl string) CompositionResult {
	return CompositionResult{CompositionSuccess{Supergraph: supergraph, SDL: sdl}}
}

// Failed builds a CompositionResult holding a CompositionFailure.
func Failed(errs []CompositionError) CompositionResult {
	if errs == nil {
		errs = []CompositionError{}
	}
	return CompositionResult{CompositionFailure{Errors: errs}}
}

// IsSuccess returns whether this result holds a CompositionSuccess.
func (r CompositionResult) IsSuccess() bool {
	_, ok := r.Outcome.(CompositionSuccess)
	return ok
}

type compositionResultJSON struct {
	Type   ResultType      `json:"type"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON implements the json.Marshaler interface.
func (r CompositionResult) MarshalJSON() ([]byte, error) {
	switch outcome := r.Outcome.(type) {
	case CompositionSuccess:
		return marshalWithType(outcome.ResultType(), outcome)
	case CompositionFailure:
		if outcome.Errors == nil {
			outcome.Errors = []CompositionError{}
		}
		return marshalWithType(outcome.ResultType(), outcome)
	case nil:
		return nil, errors.New("cannot marshal CompositionResult without outcome")
	default:
		return nil, fmt.Errorf("cannot marshal CompositionResult with outcome of type %T", r.Outcome)
	}
}

func marshalWithType(t ResultType, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(compositionResultJSON{Type: t, Result: buf})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *CompositionResult) UnmarshalJSON(buf []byte) error {
	var data compositionResultJSON
	err := json.Unmarshal(buf, &data)
	if err != nil {
		return err
	}

	switch data.Type {
	case ResultTypeSuccess:
		var s CompositionSuccess
		err = json.Unmarshal(data.Result, &s)
		if err != nil {
			return fmt.Errorf("cannot decode success result: %w", err)
		}
		r.Outcome = s
	case ResultTypeFailure:
		var f CompositionFailure
		err = json.Unmarshal(data.Result, &f)
		if err != nil {
			return fmt.Errorf("cannot decode failure result: %w", err)
		}
		for idx, e := range f.Errors {
			if !e.Source.IsValid() {
				return fmt.Errorf("error at index %d has invalid source %q", idx, e.Source)
			}
		}
		if f.Errors == nil {
			f.Errors = []CompositionError{}
		}
		r.Outcome = f
	default:
		return fmt.Errorf("unknown composition result type %q", data.Type)
	}
	return nil
}
