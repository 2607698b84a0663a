// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package composeapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sapcc/go-bits/assert"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
	"github.com/sapcc/compositor/internal/signature"
	"github.com/sapcc/compositor/internal/test"
)

func loadSchema(t *testing.T, sdl string) *ast.Schema {
	t.Helper()
	schema, err := validator.LoadSchema(validator.Prelude, &ast.Source{Name: "test", Input: sdl})
	if err != nil {
		t.Fatal(err.Error())
	}
	return schema
}

func TestRootAndHealthcheck(t *testing.T) {
	s := test.NewSetup(t, nil)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/",
		ExpectStatus: http.StatusOK,
		ExpectBody:   assert.StringData("Hello world"),
	}.Check(t, s.Handler)

	assert.HTTPRequest{
		Method:       "GET",
		Path:         "/healthcheck",
		ExpectStatus: http.StatusOK,
		ExpectBody:   assert.StringData("ok\n"),
	}.Check(t, s.Handler)
}

func TestOptionsDoesNotRequireSignature(t *testing.T) {
	s := test.NewSetup(t, nil)

	assert.HTTPRequest{
		Method:       "OPTIONS",
		Path:         "/api/compose",
		ExpectStatus: http.StatusOK,
		ExpectBody:   assert.StringData(""),
	}.Check(t, s.Handler)

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string(nil))
}

func TestCORSPreflightAllowsSignatureHeader(t *testing.T) {
	s := test.NewSetup(t, nil)
	origin := "https://registry.example.org"

	resp, _ := assert.HTTPRequest{
		Method: "OPTIONS",
		Path:   "/api/compose",
		Header: map[string]string{
			"Origin":                         origin,
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": signature.HeaderName + ", Content-Type",
		},
		ExpectStatus: http.StatusOK,
		ExpectBody:   assert.StringData(""),
	}.Check(t, s.Handler)

	allowedHeaders := strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))
	if !strings.Contains(allowedHeaders, strings.ToLower(signature.HeaderName)) {
		t.Errorf("expected Access-Control-Allow-Headers to contain %s, but got %q",
			signature.HeaderName, resp.Header.Get("Access-Control-Allow-Headers"))
	}
	expectAllowedOrigin(t, resp, origin)

	// headers outside the allowlist fail the preflight
	resp, _ = assert.HTTPRequest{
		Method: "OPTIONS",
		Path:   "/api/compose",
		Header: map[string]string{
			"Origin":                         origin,
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": "X-Something-Else",
		},
		ExpectStatus: http.StatusOK,
	}.Check(t, s.Handler)
	if value := resp.Header.Get("Access-Control-Allow-Origin"); value != "" {
		t.Errorf("expected no Access-Control-Allow-Origin for a disallowed header, but got %q", value)
	}

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string(nil))
}

func TestCORSOnCrossOriginCompose(t *testing.T) {
	s := test.NewSetup(t, nil)
	origin := "https://registry.example.org"

	body := test.RequestBody(t, test.Subgraph("a", "type Query { a: Int }"))
	header := test.SignatureHeader(body)
	header["Origin"] = origin
	resp, _ := assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       header,
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
	}.Check(t, s.Handler)

	expectAllowedOrigin(t, resp, origin)
	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string{{"a"}})
}

func expectAllowedOrigin(t *testing.T, resp *http.Response, origin string) {
	t.Helper()
	// "*" and the echoed origin are both acceptable
	value := resp.Header.Get("Access-Control-Allow-Origin")
	if value != "*" && value != origin {
		t.Errorf("expected Access-Control-Allow-Origin to admit %q, but got %q", origin, value)
	}
}

func TestComposeSuccess(t *testing.T) {
	s := test.NewSetup(t, nil)
	apiSchema := loadSchema(t, "type Query { a: Int b: Int }")
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		return compositor.Composition{SupergraphSDL: "supergraph of a and b", APISchema: apiSchema}, nil
	}

	body := test.RequestBody(t,
		test.Subgraph("a", "type Query { a: Int }"),
		test.Subgraph("b", "extend type Query { b: Int }"),
	)
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"type": "success",
			"result": assert.JSONObject{
				"supergraph": "supergraph of a and b",
				"sdl":        processor.PrintSchema(apiSchema),
			},
		},
	}.Check(t, s.Handler)

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string{{"a", "b"}})
}

func TestComposeWithServicesObjectAndSchemePrefix(t *testing.T) {
	s := test.NewSetup(t, nil)

	body := []byte(`{"services":[{"name":"a","url":"http://a.example.org","sdl":"type Query { a: Int }"}]}`)
	_, respBody := assert.HTTPRequest{
		Method: "POST",
		Path:   "/api/compose",
		Header: map[string]string{
			signature.HeaderName: signature.SignWithScheme(body, []byte(test.UnitTestSecret)),
		},
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
	}.Check(t, s.Handler)

	var result compositor.CompositionResult
	err := json.Unmarshal(respBody, &result)
	if err != nil {
		t.Fatal(err.Error())
	}
	if !result.IsSuccess() {
		t.Errorf("expected composition to succeed, but got %#v", result.Outcome)
	}
}

func TestComposeFailure(t *testing.T) {
	s := test.NewSetup(t, nil)
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		return compositor.Composition{Errors: gqlerror.List{
			{Message: `Type of field "Thing.value" is incompatible across subgraphs`, Extensions: map[string]any{"code": "FIELD_TYPE_MISMATCH"}},
			{Message: "Undefined type Missing."},
		}}, nil
	}

	body := test.RequestBody(t,
		test.Subgraph("a", "type Query { a: Thing } type Thing { value: String }"),
		test.Subgraph("b", "extend type Query { b: Thing } extend type Thing { other: Missing }"),
	)
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"type": "failure",
			"result": assert.JSONObject{
				"errors": []assert.JSONObject{
					{"message": `Type of field "Thing.value" is incompatible across subgraphs`, "source": "composition"},
					{"message": "Undefined type Missing.", "source": "graphql"},
				},
			},
		},
	}.Check(t, s.Handler)
}

func TestComposeInvalidSDL(t *testing.T) {
	s := test.NewSetup(t, nil)

	body := test.RequestBody(t,
		test.Subgraph("a", "type Query { a: Int }"),
		test.Subgraph("broken", "type Query {"),
	)
	_, respBody := assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
	}.Check(t, s.Handler)

	var result compositor.CompositionResult
	err := json.Unmarshal(respBody, &result)
	if err != nil {
		t.Fatal(err.Error())
	}
	failure, ok := result.Outcome.(compositor.CompositionFailure)
	if !ok {
		t.Fatalf("expected a CompositionFailure, but got %#v", result.Outcome)
	}
	if len(failure.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
	for _, ce := range failure.Errors {
		assert.DeepEqual(t, "error source", ce.Source, compositor.SourceGraphQL)
	}

	// unparseable subgraphs never reach the composer
	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string(nil))
}

func TestSignatureIsRequired(t *testing.T) {
	s := test.NewSetup(t, nil)
	body := test.RequestBody(t, test.Subgraph("a", "type Query { a: Int }"))

	// tampering with the body after signing
	tampered := []byte(strings.Replace(string(body), "a: Int", "a: Boolean", 1))
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(tampered),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("invalid signature\n"),
	}.Check(t, s.Handler)

	// missing signature
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("missing signature\n"),
	}.Check(t, s.Handler)

	// signature that is not even a hex digest
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       map[string]string{signature.HeaderName: "sha1=abcdef"},
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("malformed signature\n"),
	}.Check(t, s.Handler)

	// signature made with a different secret
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       map[string]string{signature.HeaderName: signature.Sign(body, []byte("hunter2"))},
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("invalid signature\n"),
	}.Check(t, s.Handler)

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string(nil))
}

func TestMalformedRequests(t *testing.T) {
	s := test.NewSetup(t, nil)

	testCases := []struct {
		Body           string
		ExpectedStatus int
		ExpectedBody   string
	}{
		{`   `, http.StatusBadRequest, "malformed request body: empty body\n"},
		{`"hello"`, http.StatusBadRequest, "malformed request body: expected a JSON array or object\n"},
		{`{"subgraphs":[]}`, http.StatusBadRequest, "malformed request body: missing \"services\" field\n"},
		{`[{"name":"","url":"","sdl":"type Query { a: Int }"}]`, http.StatusUnprocessableEntity, "subgraph at index 0 has no name\n"},
		{`[{"name":"a","sdl":"type Query { a: Int }"},{"name":"a","sdl":"extend type Query { b: Int }"}]`, http.StatusUnprocessableEntity, "duplicate subgraph name \"a\"\n"},
	}

	for _, tc := range testCases {
		body := []byte(tc.Body)
		assert.HTTPRequest{
			Method:       "POST",
			Path:         "/api/compose",
			Header:       test.SignatureHeader(body),
			Body:         assert.StringData(tc.Body),
			ExpectStatus: tc.ExpectedStatus,
			ExpectBody:   assert.StringData(tc.ExpectedBody),
		}.Check(t, s.Handler)
	}

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string(nil))
}

func TestEmptyRequestIsComposed(t *testing.T) {
	s := test.NewSetup(t, nil)
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		return compositor.Composition{Errors: gqlerror.List{{Message: "No queries found in any subgraph", Extensions: map[string]any{"code": "NO_QUERIES"}}}}, nil
	}

	body := test.RequestBody(t)
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusOK,
		ExpectBody: assert.JSONObject{
			"type": "failure",
			"result": assert.JSONObject{
				"errors": []assert.JSONObject{
					{"message": "No queries found in any subgraph", "source": "composition"},
				},
			},
		},
	}.Check(t, s.Handler)

	assert.DeepEqual(t, "composer calls", s.Composer.RecordedCalls(), [][]string{{}})
}

func TestRequestBodyLimit(t *testing.T) {
	s := test.NewSetup(t, &test.SetupOptions{MaxRequestBodyBytes: 64})

	body := test.RequestBody(t, test.Subgraph("a", "type Query { "+strings.Repeat("field: Int ", 20)+"}"))
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusRequestEntityTooLarge,
		ExpectBody:   assert.StringData("http: request body too large\n"),
	}.Check(t, s.Handler)
}

func TestComposerFaults(t *testing.T) {
	s := test.NewSetup(t, nil)
	body := test.RequestBody(t, test.Subgraph("a", "type Query { a: Int }"))

	// unexpected error
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		return compositor.Composition{}, errors.New("out of cheese")
	}
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("internal server error\n"),
	}.Check(t, s.Handler)

	// panic
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		panic("something went horribly wrong")
	}
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("internal server error\n"),
	}.Check(t, s.Handler)

	// success without a schema is a fault, too
	s.Composer.ComposeFunc = func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
		return compositor.Composition{}, nil
	}
	assert.HTTPRequest{
		Method:       "POST",
		Path:         "/api/compose",
		Header:       test.SignatureHeader(body),
		Body:         assert.StringData(body),
		ExpectStatus: http.StatusInternalServerError,
		ExpectBody:   assert.StringData("internal server error\n"),
	}.Check(t, s.Handler)
}
