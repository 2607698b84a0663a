// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"encoding/json"
	"testing"

	"github.com/sapcc/go-bits/must"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/signature"
)

// RequestBody renders the request body that the schema registry would send
// for the given subgraphs, i.e. a bare JSON array.
func RequestBody(t *testing.T, services ...compositor.SubgraphInput) []byte {
	t.Helper()
	if services == nil {
		services = []compositor.SubgraphInput{}
	}
	return must.ReturnT(json.Marshal(services))(t)
}

// SignatureHeader returns request headers that carry a valid signature for
// the given body.
func SignatureHeader(body []byte) map[string]string {
	return map[string]string{
		signature.HeaderName: signature.Sign(body, []byte(UnitTestSecret)),
	}
}

// Subgraph builds a SubgraphInput with a URL derived from its name.
func Subgraph(name, sdl string) compositor.SubgraphInput {
	return compositor.SubgraphInput{
		Name: name,
		URL:  "http://" + name + ".example.org/graphql",
		SDL:  sdl,
	}
}
