// Command formlogic is a thin CLI wrapper over the formlogic package
// (SPEC_FULL.md ambient stack: "the CLI is thin and calls only the core's
// public API"), exposing evaluate/validate/compile subcommands for
// exercising a schema against a data document from disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
