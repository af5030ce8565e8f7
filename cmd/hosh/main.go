// Command hosh is the single composition root for every hosh role:
// web, checker-btc, checker-zec, and discovery. Which roles a given
// process runs is selected by --roles or RUN_MODE (spec.md's Open
// Questions decision), not by separate binaries per role.
package main

import (
	"os"

	"hosh/cmd/hosh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
