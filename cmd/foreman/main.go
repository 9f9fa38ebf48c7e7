// Command foreman is the entrypoint binary: parse flags, dispatch to a
// subcommand, exit non-zero on failure.
package main

import (
	"fmt"
	"os"

	"github.com/foreman-sh/foreman/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
