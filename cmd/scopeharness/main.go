// Command scopeharness drives scopes from the command line: it runs
// scenario suites, inspects results, departments and previews, and reads
// recorded traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/goscope/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
