// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"net/http"
	"testing"

	. "github.com/majewsky/gg/option"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"

	"github.com/sapcc/compositor/internal/api"
	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
	"github.com/sapcc/compositor/internal/signature"
)

// UnitTestSecret is the COMPOSITOR_SECRET used in unit tests.
const UnitTestSecret = "swordfish"

// SetupOptions contains optional arguments for test.NewSetup().
type SetupOptions struct {
	// if true, the unittest composer reports that it is not reentrant
	NonReentrantComposer      bool
	MaxRequestBodyBytes       int64 // if zero, the default is used
	MaxConcurrentCompositions Option[uint64]
}

// Setup contains all the objects that make up a compositor process, wired up
// for a unit test.
type Setup struct {
	Config    compositor.Configuration
	Clock     *Clock
	Composer  *Composer
	Verifier  *signature.Verifier
	Processor *processor.Processor
	Handler   http.Handler
}

// NewSetup builds a Setup for a unit test. The composer is always the
// "unittest" composer from this package.
func NewSetup(t *testing.T, optsPtr *SetupOptions) Setup {
	t.Helper()
	logg.ShowDebug = osext.GetenvBool("COMPOSITOR_DEBUG")

	var opts SetupOptions
	if optsPtr != nil {
		opts = *optsPtr
	}

	cfg := compositor.Configuration{
		Secret:                    []byte(UnitTestSecret),
		APIListenAddress:          compositor.DefaultAPIListenAddress,
		ComposerPluginID:          "unittest",
		MaxRequestBodyBytes:       compositor.DefaultMaxRequestBodyBytes,
		MaxConcurrentCompositions: opts.MaxConcurrentCompositions,
	}
	if opts.MaxRequestBodyBytes > 0 {
		cfg.MaxRequestBodyBytes = opts.MaxRequestBodyBytes
	}

	composer, ok := must.ReturnT(compositor.NewComposer(cfg.ComposerPluginID, cfg))(t).(*Composer)
	if !ok {
		t.Fatal("composer \"unittest\" is not a *test.Composer")
	}
	composer.Reentrant = !opts.NonReentrantComposer

	clock := &Clock{}
	verifier := must.ReturnT(signature.NewVerifier(cfg.Secret))(t)
	proc := processor.New(cfg, composer).OverrideTimeNow(clock.Now)

	return Setup{
		Config:    cfg,
		Clock:     clock,
		Composer:  composer,
		Verifier:  verifier,
		Processor: proc,
		Handler:   api.NewHandler(cfg, verifier, proc),
	}
}
