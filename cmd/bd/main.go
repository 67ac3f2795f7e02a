// bd is the CLI for minibeads, a file-backed, dependency-aware issue
// tracker.
package main

import (
	"fmt"
	"os"

	"minibeads/internal/cmd"
)

func main() {
	err := cmd.Execute(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cmd.ExitCode(err))
}
