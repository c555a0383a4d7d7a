// sigchain edits signal-chain documents from the command line.
//
// Usage:
//
//	sigchain show [-f chain.yaml] [--all]
//	sigchain add "Bandpass Filter" [--at N]
//	sigchain switch <splitter-id> B
//	sigchain save <name> [--db sigchain.db]
//	sigchain load <name> [--revision N]
//	sigchain catalog
//
// Every editing command reads the document named by --file, applies one
// edit and writes it back. A missing file starts an empty chain set.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
