// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
)

// Composer (driver ID "unittest") is a compositor.Composer for unit tests.
//
// By default, it loads all subgraph documents into one schema without any
// federation logic, so subgraphs need to use "extend type Query" to avoid
// redeclaring types. Set ComposeFunc to simulate other behavior.
type Composer struct {
	Reentrant   bool
	ComposeFunc func(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error)

	// MaxInFlight is the highest number of concurrent Compose() calls that was observed.
	MaxInFlight atomic.Int64
	inFlight    atomic.Int64

	mutex         sync.Mutex
	recordedCalls [][]string
}

func init() {
	compositor.ComposerRegistry.Add(func() compositor.Composer { return &Composer{} })
}

// PluginTypeID implements the compositor.Composer interface.
func (c *Composer) PluginTypeID() string { return "unittest" }

// Init implements the compositor.Composer interface.
func (c *Composer) Init(cfg compositor.Configuration) error {
	c.Reentrant = true
	return nil
}

// IsReentrant implements the compositor.Composer interface.
func (c *Composer) IsReentrant() bool {
	return c.Reentrant
}

// Compose implements the compositor.Composer interface.
func (c *Composer) Compose(ctx context.Context, subgraphs []compositor.Subgraph) (compositor.Composition, error) {
	inFlight := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		prev := c.MaxInFlight.Load()
		if inFlight <= prev || c.MaxInFlight.CompareAndSwap(prev, inFlight) {
			break
		}
	}

	names := make([]string, len(subgraphs))
	for idx, sg := range subgraphs {
		names[idx] = sg.Name
	}
	c.mutex.Lock()
	c.recordedCalls = append(c.recordedCalls, names)
	c.mutex.Unlock()

	if c.ComposeFunc != nil {
		return c.ComposeFunc(ctx, subgraphs)
	}
	return ComposeNaively(subgraphs), nil
}

// RecordedCalls returns the subgraph names given to each call of Compose(),
// in the order in which the calls were made.
func (c *Composer) RecordedCalls() [][]string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([][]string(nil), c.recordedCalls...)
}

// ComposeNaively is the default behavior of Composer.Compose(). The
// supergraph is the concatenation of all subgraph documents.
func ComposeNaively(subgraphs []compositor.Subgraph) compositor.Composition {
	var (
		sources    = []*ast.Source{validator.Prelude}
		supergraph strings.Builder
	)
	supergraph.WriteString("# naive supergraph\n")
	for _, sg := range subgraphs {
		var buf strings.Builder
		formatter.NewFormatter(&buf).FormatSchemaDocument(sg.TypeDefs)
		sources = append(sources, &ast.Source{Name: sg.Name, Input: buf.String()})
		supergraph.WriteString("\n# subgraph " + sg.Name + "\n" + buf.String())
	}

	schema, err := validator.LoadSchema(sources...)
	if err != nil {
		return compositor.Composition{Errors: processor.AsGraphQLErrors(err)}
	}
	return compositor.Composition{
		SupergraphSDL: supergraph.String(),
		APISchema:     schema,
	}
}
