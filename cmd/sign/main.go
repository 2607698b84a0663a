// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package signcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/cobra"

	"github.com/sapcc/compositor/internal/signature"
)

var withScheme bool

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "sign <file>",
		Example: "  curl -H \"X-Hive-Signature-256: $(compositor sign body.json)\" --data-binary @body.json http://localhost:3000/api/compose",
		Short:   "Prints the request signature for a file.",
		Long: `Prints the signature that a request with the given file as its body needs to carry in the X-Hive-Signature-256 header.
The secret is read from the COMPOSITOR_SECRET environment variable. Use "-" to read the body from stdin.`,
		Args: cobra.ExactArgs(1),
		Run:  run,
	}
	cmd.PersistentFlags().BoolVar(&withScheme, "with-scheme", false, `Prefix the signature with "sha256=".`)
	parent.AddCommand(cmd)
}

func run(cmd *cobra.Command, args []string) {
	secret := []byte(osext.MustGetenv("COMPOSITOR_SECRET"))
	body := must.Return(readBody(args[0], os.Stdin))
	fmt.Println(signBody(body, secret, withScheme))
}

// Reads the file at the given path, or the given stdin if the path is "-".
func readBody(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func signBody(body, secret []byte, withScheme bool) string {
	if withScheme {
		return signature.SignWithScheme(body, secret)
	}
	return signature.Sign(body, secret)
}
