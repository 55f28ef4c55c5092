// Command tcpscan is a concurrent TCP connect port scanner.
package main

import (
	"os"

	"github.com/gabrier01/tcpscan01/cmd/cli"
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	os.Exit(cli.Execute())
}
