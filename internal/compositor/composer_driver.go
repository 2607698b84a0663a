// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"context"
	"errors"

	"github.com/sapcc/go-bits/pluggable"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Subgraph is a parsed SubgraphInput, as given to Composer.Compose.
type Subgraph struct {
	Name     string
	URL      string
	TypeDefs *ast.SchemaDocument
}

// Composition is the raw result of Composer.Compose. Either Errors is
// non-empty, or SupergraphSDL and APISchema are filled.
type Composition struct {
	SupergraphSDL string
	// APISchema is the client-facing schema without any federation machinery.
	APISchema *ast.Schema
	Errors    gqlerror.List
}

// Composer is the abstract interface for a supergraph composition algorithm.
type Composer interface {
	pluggable.Plugin
	// Init is called before any other interface methods, and allows the plugin to
	// perform first-time initialization.
	Init(cfg Configuration) error

	// IsReentrant returns whether Compose may be called concurrently. If false,
	// the caller serializes all calls to Compose.
	IsReentrant() bool

	// Compose merges the given subgraphs into a supergraph.
	//
	// Expected composition failures (conflicting types, invalid schemas etc.)
	// must be reported in Composition.Errors. Errors that carry a string value
	// in Extensions["code"] are reported to the client as composition errors,
	// all others as general GraphQL errors.
	//
	// A non-nil error return indicates an unexpected fault in the composer itself.
	Compose(ctx context.Context, subgraphs []Subgraph) (Composition, error)
}

// ComposerRegistry is a pluggable.Registry for Composer implementations.
var ComposerRegistry pluggable.Registry[Composer]

// NewComposer creates a new Composer using one of the plugins registered with
// ComposerRegistry.
func NewComposer(pluginTypeID string, cfg Configuration) (Composer, error) {
	c := ComposerRegistry.Instantiate(pluginTypeID)
	if c == nil {
		return nil, errors.New("no such composer: " + pluginTypeID)
	}
	return c, c.Init(cfg)
}
