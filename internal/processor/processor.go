// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/majewsky/gg/option"
	"github.com/opencontainers/go-digest"
	"github.com/sapcc/go-bits/errext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/syncext"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/sapcc/compositor/internal/compositor"
)

// Processor wraps a compositor.Composer and turns its raw output into the
// stable compositor.CompositionResult contract.
type Processor struct {
	cfg      compositor.Configuration
	composer compositor.Composer
	// both optional
	serializer *syncext.Semaphore // if the composer is not reentrant
	limiter    *syncext.Semaphore // if COMPOSITOR_MAX_CONCURRENT_COMPOSITIONS is set

	// non-pure functions that can be replaced by deterministic doubles for unit tests
	timeNow func() time.Time
}

// New creates a new Processor.
func New(cfg compositor.Configuration, composer compositor.Composer) *Processor {
	p := &Processor{cfg: cfg, composer: composer, timeNow: time.Now}
	if !composer.IsReentrant() {
		p.serializer = syncext.NewSemaphore(1)
	}
	if limit, ok := cfg.MaxConcurrentCompositions.Unpack(); ok {
		p.limiter = syncext.NewSemaphore(int(limit))
	}
	return p
}

// OverrideTimeNow replaces time.Now with a test double.
func (p *Processor) OverrideTimeNow(timeNow func() time.Time) *Processor {
	p.timeNow = timeNow
	return p
}

// Compose parses the subgraphs in the given request and composes them.
//
// Composition failures are not reported as errors, but as a
// CompositionResult containing a CompositionFailure. A non-nil error is only
// returned for unexpected faults, e.g. when the composer itself breaks down.
func (p *Processor) Compose(ctx context.Context, req compositor.CompositionRequest) (compositor.CompositionResult, error) {
	err := ctx.Err()
	if err != nil {
		return compositor.CompositionResult{}, err
	}
	startedAt := p.timeNow()

	subgraphs, parseErrors := parseSubgraphs(req.Services)
	if len(parseErrors) > 0 {
		return p.reportFailure(parseErrors, startedAt), nil
	}

	var composition compositor.Composition
	err = p.withConcurrencyLimits(func() (err error) {
		composition, err = p.invokeComposer(ctx, subgraphs)
		return err
	})
	if err != nil {
		compositionsCounter.WithLabelValues("error").Inc()
		return compositor.CompositionResult{}, fmt.Errorf("while composing %d subgraphs: %w", len(subgraphs), err)
	}

	if len(composition.Errors) > 0 {
		errs := nonNilErrors(composition.Errors)
		if len(errs) == 0 {
			compositionsCounter.WithLabelValues("error").Inc()
			return compositor.CompositionResult{}, errors.New("composer reported failure, but all reported errors were nil")
		}
		return p.reportFailure(errs, startedAt), nil
	}

	sdl := PrintSchema(composition.APISchema)
	if composition.SupergraphSDL == "" || sdl == "" {
		compositionsCounter.WithLabelValues("error").Inc()
		return compositor.CompositionResult{}, errors.New("composer reported success, but returned an empty schema")
	}

	compositionsCounter.WithLabelValues("success").Inc()
	compositionDurationHistogram.Observe(p.timeNow().Sub(startedAt).Seconds())
	if logg.ShowDebug {
		logg.Debug("composed supergraph %s from %d subgraphs",
			digest.Canonical.FromString(composition.SupergraphSDL), len(subgraphs))
	}
	return compositor.Succeeded(composition.SupergraphSDL, sdl), nil
}

func parseSubgraphs(inputs []compositor.SubgraphInput) ([]compositor.Subgraph, gqlerror.List) {
	var (
		subgraphs []compositor.Subgraph
		errs      gqlerror.List
	)
	for _, input := range inputs {
		doc, err := parser.ParseSchema(&ast.Source{Name: input.Name, Input: input.SDL})
		if err != nil {
			errs = append(errs, AsGraphQLErrors(err)...)
			continue
		}
		subgraphs = append(subgraphs, compositor.Subgraph{
			Name:     input.Name,
			URL:      input.URL,
			TypeDefs: doc,
		})
	}
	return subgraphs, errs
}

func (p *Processor) withConcurrencyLimits(action func() error) error {
	if p.limiter != nil {
		inner := action
		action = func() error { return p.limiter.RunFallible(inner) }
	}
	if p.serializer != nil {
		inner := action
		action = func() error { return p.serializer.RunFallible(inner) }
	}
	return action()
}

func (p *Processor) invokeComposer(ctx context.Context, subgraphs []compositor.Subgraph) (result compositor.Composition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("composer %q panicked: %v", p.composer.PluginTypeID(), r)
		}
	}()
	return p.composer.Compose(ctx, subgraphs)
}

func (p *Processor) reportFailure(errs gqlerror.List, startedAt time.Time) compositor.CompositionResult {
	compositionsCounter.WithLabelValues("failure").Inc()
	compositionDurationHistogram.Observe(p.timeNow().Sub(startedAt).Seconds())

	result := make([]compositor.CompositionError, 0, len(errs))
	for _, err := range errs {
		ce := ClassifyError(err)
		compositionErrorsCounter.WithLabelValues(string(ce.Source)).Inc()
		result = append(result, ce)
	}
	logg.Debug("composition failed with %d errors", len(result))
	return compositor.Failed(result)
}

func nonNilErrors(errs gqlerror.List) gqlerror.List {
	result := make(gqlerror.List, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			result = append(result, err)
		}
	}
	return result
}

// ClassifyError converts an error reported by a composer into a
// CompositionError. Errors carrying a string-typed "code" extension are
// composition errors, everything else is a GraphQL error.
func ClassifyError(err *gqlerror.Error) compositor.CompositionError {
	ce := compositor.CompositionError{
		Message: err.Message,
		Source:  compositor.SourceGraphQL,
	}
	if ce.Message == "" {
		ce.Message = err.Error()
	}
	if _, ok := ErrorCode(err).Unpack(); ok {
		ce.Source = compositor.SourceComposition
	}
	return ce
}

// ErrorCode returns the value of the "code" extension of the given error, if
// it is a string.
func ErrorCode(err *gqlerror.Error) Option[string] {
	code, ok := err.Extensions["code"].(string)
	if !ok {
		return None[string]()
	}
	return Some(code)
}

// AsGraphQLErrors converts an error returned by the gqlparser library into a
// gqlerror.List.
func AsGraphQLErrors(err error) gqlerror.List {
	if list, ok := errext.As[gqlerror.List](err); ok {
		return list
	}
	if single, ok := errext.As[*gqlerror.Error](err); ok {
		return gqlerror.List{single}
	}
	return gqlerror.List{{Message: err.Error()}}
}

// PrintSchema renders an executable schema as canonical SDL.
func PrintSchema(schema *ast.Schema) string {
	if schema == nil {
		return ""
	}
	var buf strings.Builder
	formatter.NewFormatter(&buf).FormatSchema(schema)
	return buf.String()
}
