// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package federation contains the built-in compositor.Composer. It composes
// Apollo Federation subgraphs (v1 and v2 style) into a supergraph using join
// v0.3 annotations. It only covers the commonly used parts of the federation
// specification: entities and keys, @external, @requires, @provides,
// @shareable, @override and @inaccessible.
package federation

import (
	"context"
	"strings"

	"github.com/sapcc/go-bits/logg"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
)

// Composer (driver ID "federation") is a compositor.Composer.
type Composer struct{}

func init() {
	compositor.ComposerRegistry.Add(func() compositor.Composer { return &Composer{} })
}

// PluginTypeID implements the compositor.Composer interface.
func (c *Composer) PluginTypeID() string { return "federation" }

// Init implements the compositor.Composer interface.
func (c *Composer) Init(cfg compositor.Configuration) error {
	return nil
}

// IsReentrant implements the compositor.Composer interface.
func (c *Composer) IsReentrant() bool {
	// all state lives on the stack of Compose()
	return true
}

// Compose implements the compositor.Composer interface.
func (c *Composer) Compose(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
	m := newMerger()
	for _, sg := range subgraphs {
		g := m.addGraph(sg)
		logg.Debug("merging subgraph %q as %s (federation v%d)", g.name, g.enumValue, g.federationVersion())
		for _, contrib := range normalizeSubgraph(sg.TypeDefs) {
			m.addDefinition(g, contrib.def, contrib.isExtension)
		}
	}
	m.checkFields()
	m.checkQueryRoot()
	if len(m.errs) > 0 {
		return compositor.Composition{Errors: m.errs}, nil
	}

	err := ctx.Err()
	if err != nil {
		return compositor.Composition{}, err
	}

	apiSDL := printDocument(m.buildAPISchemaDocument())
	schema, err := validator.LoadSchema(validator.Prelude, &ast.Source{Name: "api-schema", Input: apiSDL})
	if err != nil {
		return compositor.Composition{Errors: processor.AsGraphQLErrors(err)}, nil
	}

	return compositor.Composition{
		SupergraphSDL: m.buildSupergraph(),
		APISchema:     schema,
	}, nil
}

func compositionError(code, msg string, args ...any) *gqlerror.Error {
	err := gqlerror.Errorf(msg, args...)
	err.Extensions = map[string]any{"code": code}
	return err
}

// Renders a list of subgraph names in the style of `subgraphs "a", "b" and "c"`.
func describeGraphs(names []string) string {
	quoted := make([]string, len(names))
	for idx, name := range names {
		quoted[idx] = `"` + name + `"`
	}
	switch len(quoted) {
	case 0:
		return "no subgraphs"
	case 1:
		return "subgraph " + quoted[0]
	default:
		return "subgraphs " + strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
	}
}

func describeKind(kind ast.DefinitionKind) string {
	switch kind {
	case ast.Scalar:
		return "Scalar Type"
	case ast.Object:
		return "Object Type"
	case ast.Interface:
		return "Interface Type"
	case ast.Union:
		return "Union Type"
	case ast.Enum:
		return "Enum Type"
	case ast.InputObject:
		return "Input Object Type"
	default:
		return string(kind)
	}
}
