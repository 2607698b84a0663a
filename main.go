// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/cobra"

	apicmd "github.com/sapcc/compositor/cmd/api"
	composecmd "github.com/sapcc/compositor/cmd/compose"
	healthmonitorcmd "github.com/sapcc/compositor/cmd/healthmonitor"
	signcmd "github.com/sapcc/compositor/cmd/sign"
	"github.com/sapcc/compositor/internal/compositor"

	// include all known composer implementations
	_ "github.com/sapcc/compositor/internal/drivers/federation"
)

func main() {
	logg.ShowDebug = osext.GetenvBool("COMPOSITOR_DEBUG")
	compositor.SetupHTTPClient()

	rootCmd := &cobra.Command{
		Use:     "compositor",
		Short:   "Supergraph composition service",
		Long:    "Compositor composes GraphQL subgraphs into a federated supergraph on behalf of a schema registry. This binary contains both the webhook server and client-side tooling.",
		Version: bininfo.VersionOr("rolling"),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help() //nolint:errcheck
		},
	}
	composecmd.AddCommandTo(rootCmd)
	signcmd.AddCommandTo(rootCmd)

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Server commands.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help() //nolint:errcheck
		},
	}
	apicmd.AddCommandTo(serverCmd)
	healthmonitorcmd.AddCommandTo(serverCmd)
	rootCmd.AddCommand(serverCmd)

	if err := rootCmd.Execute(); err != nil {
		logg.Fatal(err.Error())
	}
}
