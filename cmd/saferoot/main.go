// saferoot is a command-line tool for the Saferoot asset-recovery protocol.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/saferoot/internal/flags"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "the Saferoot asset-recovery tool")
	app.Commands = []*cli.Command{
		commandEncodeKey,
		commandPayload,
		commandSimulate,
		commandServe,
	}
}

// Commonly used command line flags.
var (
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
