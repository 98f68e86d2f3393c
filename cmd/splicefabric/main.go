// Command splicefabric runs the reverse-direction proxy fabric backend.
package main

import (
	"fmt"
	"os"

	"github.com/plexsphere/splicefabric/cmd/splicefabric/cmd"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
