// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/json"
	"testing"

	"github.com/sapcc/go-bits/assert"
	"github.com/sapcc/go-bits/must"
)

func TestCompositionResultEncoding(t *testing.T) {
	success := Succeeded("schema @link(url: \"...\") { query: Query }", "type Query {\n\tme: ID\n}\n")
	buf := must.ReturnT(json.Marshal(success))(t)
	assert.DeepEqual(t, "success JSON", string(buf),
		`{"type":"success","result":{"supergraph":"schema @link(url: \"...\") { query: Query }","sdl":"type Query {\n\tme: ID\n}\n"}}`)

	failure := Failed([]CompositionError{
		{Message: `Non-shareable field "User.name" is resolved from multiple subgraphs`, Source: SourceComposition},
		{Message: "Expected Name, found EOF", Source: SourceGraphQL},
	})
	buf = must.ReturnT(json.Marshal(failure))(t)
	assert.DeepEqual(t, "failure JSON", string(buf),
		`{"type":"failure","result":{"errors":[{"message":"Non-shareable field \"User.name\" is resolved from multiple subgraphs","source":"composition"},{"message":"Expected Name, found EOF","source":"graphql"}]}}`)

	buf = must.ReturnT(json.Marshal(Failed(nil)))(t)
	assert.DeepEqual(t, "empty failure JSON", string(buf), `{"type":"failure","result":{"errors":[]}}`)
}

func TestCompositionResultRoundTrip(t *testing.T) {
	results := []CompositionResult{
		Succeeded("supergraph", "sdl"),
		Failed([]CompositionError{
			{Message: "first", Source: SourceComposition},
			{Message: "second", Source: SourceGraphQL},
			{Message: "third", Source: SourceComposition},
		}),
		Failed(nil),
	}
	for _, original := range results {
		buf := must.ReturnT(json.Marshal(original))(t)
		var decoded CompositionResult
		must.SucceedT(t, json.Unmarshal(buf, &decoded))
		assert.DeepEqual(t, "decoded result", decoded, original)
		assert.DeepEqual(t, "IsSuccess", decoded.IsSuccess(), original.IsSuccess())
	}
}

func TestCompositionResultDecodeErrors(t *testing.T) {
	testCases := map[string]string{
		`{"type":"partial","result":{}}`: `unknown composition result type "partial"`,
		`{"result":{}}`:                  `unknown composition result type ""`,
		`{"type":"failure","result":{"errors":[{"message":"x","source":"other"}]}}`: `error at index 0 has invalid source "other"`,
	}
	for input, expectedMessage := range testCases {
		var decoded CompositionResult
		err := json.Unmarshal([]byte(input), &decoded)
		if err == nil {
			t.Errorf("expected error when decoding %s, but got none", input)
			continue
		}
		assert.DeepEqual(t, "error for "+input, err.Error(), expectedMessage)
	}

	_, err := json.Marshal(CompositionResult{})
	if err == nil {
		t.Error("expected error when marshalling CompositionResult without outcome, but got none")
	}
}
