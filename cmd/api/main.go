// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package apicmd

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/httpapi/pprofapi"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/spf13/cobra"

	"github.com/sapcc/compositor/internal/api"
	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
	"github.com/sapcc/compositor/internal/signature"
)

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run the composition webhook.",
		Long:  "Run the composition webhook. Configuration is read from COMPOSITOR_* environment variables as described in README.md.",
		Args:  cobra.NoArgs,
		Run:   run,
	}
	parent.AddCommand(cmd)
}

func run(cmd *cobra.Command, args []string) {
	compositor.SetTaskName("api")

	cfg := compositor.ParseConfiguration()
	ctx := httpext.ContextWithSIGINT(cmd.Context(), 10*time.Second)

	verifier := must.Return(signature.NewVerifier(cfg.Secret))
	composer := must.Return(compositor.NewComposer(cfg.ComposerPluginID, cfg))
	logg.Info("using composer %q (reentrant = %t)", composer.PluginTypeID(), composer.IsReentrant())
	proc := processor.New(cfg, composer)

	// wire up HTTP handlers
	handler := api.NewHandler(cfg, verifier, proc,
		&headerReflector{
			Enabled:             logg.ShowDebug, // only enabled where debugging is enabled (i.e. usually in dev/QA only)
			Verifier:            verifier,
			MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		},
		pprofapi.API{IsAuthorized: pprofapi.IsRequestFromLocalhost},
	)
	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	// start HTTP server
	logg.Info("listening on %s...", cfg.APIListenAddress)
	must.Succeed(httpext.ListenAndServeContext(ctx, cfg.APIListenAddress, mux))
}
