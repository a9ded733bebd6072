// Command trustledger records domain events in an append-only log and
// rebuilds aggregate state from them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/trustledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trustledger: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
