package flags

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/saferoot/params"
)

// VerbosityFlag selects the log level shared by every command.
var VerbosityFlag = &cli.IntFlag{
	Name:     "verbosity",
	Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
	Value:    int(log.LvlWarn),
	Category: LoggingCategory,
}

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = params.VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2024 The gtos Authors"
	app.Flags = []cli.Flag{VerbosityFlag}
	app.Before = func(ctx *cli.Context) error {
		return SetupLogging(ctx)
	}
	return app
}

// SetupLogging routes the root logger to stderr at the --verbosity level,
// colouring output when stderr is a terminal.
func SetupLogging(ctx *cli.Context) error {
	lvl := log.Lvl(ctx.Int(VerbosityFlag.Name))
	if lvl < log.LvlCrit || lvl > log.LvlTrace {
		return fmt.Errorf("invalid verbosity %d", lvl)
	}
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	output := colorable.NewColorableStderr()
	if !usecolor {
		output = os.Stderr
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(output, log.TerminalFormat(usecolor))))
	return nil
}
