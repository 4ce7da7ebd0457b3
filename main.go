// localnet starts a local network of ledger nodes and prints their output.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/localnet/cmd"
)

var (
	version string
	commit  string
	branch  string
)

func main() { // run the app
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
