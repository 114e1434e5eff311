// Command modelsync inspects languages, notification journals and
// replication scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/modelsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
