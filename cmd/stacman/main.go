package main

import (
	"os"

	"github.com/stacman/stacman/internal/cmd"
	"github.com/stacman/stacman/internal/observability"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	err := cmd.Execute()
	observability.SyncLoggers()
	if err != nil {
		// Cobra has already printed err.
		os.Exit(int(cmd.ExitCodeFor(err)))
	}
}
