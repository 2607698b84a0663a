// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"errors"
	"testing"

	"github.com/sapcc/go-bits/assert"
	"github.com/sapcc/go-bits/must"
)

func TestParseCompositionRequest(t *testing.T) {
	expected := CompositionRequest{Services: []SubgraphInput{
		{Name: "accounts", URL: "http://accounts:4000/graphql", SDL: "type Query { me: ID }"},
		{Name: "products", URL: "", SDL: "type Query { top: ID }"},
	}}

	// the registry sends a bare array
	req := must.ReturnT(ParseCompositionRequest([]byte(`[
		{"name":"accounts","url":"http://accounts:4000/graphql","sdl":"type Query { me: ID }"},
		{"name":"products","url":null,"sdl":"type Query { top: ID }"}
	]`)))(t)
	assert.DeepEqual(t, "parsed array request", req, expected)

	// the wrapped form is accepted as well
	req = must.ReturnT(ParseCompositionRequest([]byte(`  {"services":[
		{"name":"accounts","url":"http://accounts:4000/graphql","sdl":"type Query { me: ID }"},
		{"name":"products","sdl":"type Query { top: ID }"}
	]}`)))(t)
	assert.DeepEqual(t, "parsed object request", req, expected)

	req = must.ReturnT(ParseCompositionRequest([]byte(`[]`)))(t)
	assert.DeepEqual(t, "parsed empty request", req, CompositionRequest{Services: []SubgraphInput{}})
}

func TestParseCompositionRequestErrors(t *testing.T) {
	testCases := map[string]string{
		"":                 "malformed request body: empty body",
		"   ":              "malformed request body: empty body",
		`"foo"`:            "malformed request body: expected a JSON array or object",
		`{"subgraphs":[]}`: `malformed request body: missing "services" field`,
		`[{"name":"foo"}`:  "malformed request body: unexpected end of JSON input",
	}
	for body, expectedMessage := range testCases {
		_, err := ParseCompositionRequest([]byte(body))
		if err == nil {
			t.Errorf("expected error for body %q, but got none", body)
			continue
		}
		assert.DeepEqual(t, "error message for "+body, err.Error(), expectedMessage)

		var mre MalformedRequestError
		if !errors.As(err, &mre) {
			t.Errorf("expected MalformedRequestError for body %q, but got %T", body, err)
		}
	}
}

func TestValidateCompositionRequest(t *testing.T) {
	ok := CompositionRequest{Services: []SubgraphInput{{Name: "a"}, {Name: "b"}}}
	must.SucceedT(t, ok.Validate())

	duplicate := CompositionRequest{Services: []SubgraphInput{{Name: "a"}, {Name: "b"}, {Name: "a"}}}
	err := duplicate.Validate()
	assert.DeepEqual(t, "duplicate error", err, error(InvalidRequestError{`duplicate subgraph name "a"`}))

	unnamed := CompositionRequest{Services: []SubgraphInput{{Name: "a"}, {URL: "http://b"}}}
	err = unnamed.Validate()
	assert.DeepEqual(t, "unnamed error", err, error(InvalidRequestError{"subgraph at index 1 has no name"}))
}
