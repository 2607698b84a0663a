// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package composecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/spf13/cobra"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/processor"
)

var (
	composerID   string
	outputFormat string
)

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "compose <request.json>",
		Example: "  compositor compose subgraphs.json\n  compositor compose --output supergraph - < subgraphs.json",
		Short:   "Composes subgraphs from a file without going through the webhook.",
		Long: `Composes subgraphs from a file without going through the webhook.
The file must contain a request body as the schema registry would send it. Use "-" to read from stdin.
The result is written to stdout. If composition fails, the exit code is 1.`,
		Args: cobra.ExactArgs(1),
		Run:  run,
	}
	cmd.PersistentFlags().StringVar(&composerID, "composer", compositor.DefaultComposer, "Which composer to use.")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", `Output format: "json" (like the webhook response), "supergraph" or "sdl".`)
	parent.AddCommand(cmd)
}

func run(cmd *cobra.Command, args []string) {
	compositor.SetTaskName("compose")

	var input []byte
	if args[0] == "-" {
		input = must.Return(io.ReadAll(os.Stdin))
	} else {
		input = must.Return(os.ReadFile(args[0]))
	}

	output, ok, err := composeRequestBody(cmd.Context(), input, composerID, outputFormat)
	if err != nil {
		logg.Fatal(err.Error())
	}
	fmt.Print(output)
	if !ok {
		os.Exit(1)
	}
}

// Returns the rendered output and whether the composition succeeded.
func composeRequestBody(ctx context.Context, input []byte, composerID, outputFormat string) (string, bool, error) {
	if outputFormat != "json" && outputFormat != "supergraph" && outputFormat != "sdl" {
		return "", false, fmt.Errorf("invalid output format: %q", outputFormat)
	}

	req, err := compositor.ParseCompositionRequest(input)
	if err != nil {
		return "", false, err
	}
	err = req.Validate()
	if err != nil {
		return "", false, err
	}

	cfg := compositor.Configuration{
		ComposerPluginID:    composerID,
		MaxRequestBodyBytes: compositor.DefaultMaxRequestBodyBytes,
	}
	composer, err := compositor.NewComposer(cfg.ComposerPluginID, cfg)
	if err != nil {
		return "", false, err
	}
	result, err := processor.New(cfg, composer).Compose(ctx, req)
	if err != nil {
		return "", false, err
	}

	switch outcome := result.Outcome.(type) {
	case compositor.CompositionSuccess:
		switch outputFormat {
		case "supergraph":
			return outcome.Supergraph, true, nil
		case "sdl":
			return outcome.SDL, true, nil
		}
	case compositor.CompositionFailure:
		if outputFormat != "json" {
			var buf strings.Builder
			for _, ce := range outcome.Errors {
				fmt.Fprintf(&buf, "[%s] %s\n", ce.Source, ce.Message)
			}
			return buf.String(), false, nil
		}
	}

	buf, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", false, err
	}
	return string(buf) + "\n", result.IsSuccess(), nil
}
