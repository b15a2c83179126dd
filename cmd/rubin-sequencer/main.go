// Command rubin-sequencer runs the commit-to-execution pipeline and its
// read-only RPC surface, or performs one-shot key and deploy utility
// operations against a running node's data directory.
package main

import (
	"os"
	"time"
)

// nowFn is the wall clock used when sealing a block from the deploy
// subcommand; overridable in tests.
var nowFn = time.Now

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
