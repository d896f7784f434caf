// ABOUTME: Entry point for the fold-ledger CLI
// ABOUTME: Sovereign signed message log with peer sync

package main

import (
	"fmt"
	"os"

	"github.com/2389/fold-ledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fold-ledger: %v\n", err)
		os.Exit(1)
	}
}
