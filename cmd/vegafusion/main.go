// Command vegafusion is a small driver over the planning and execution
// core. Its plan subcommand reads a Vega specification, runs the planner,
// and prints the resulting communication plan; its version subcommand
// prints the version. It has no subcommand that evaluates values.
package main

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Ui is the cli.Ui every command writes through, following the teacher's
// package-level Ui convention (cmd/tofu/commands.go).
var Ui cli.Ui

func main() {
	os.Exit(realMain())
}

func realMain() int {
	Ui = &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "vegafusion",
		Level:  hclog.LevelFromString(os.Getenv("VEGAFUSION_LOG")),
		Output: os.Stderr,
	})

	c := cli.NewCLI("vegafusion", version)
	c.Args = os.Args[1:]
	c.Commands = commands(logger)

	exitCode, err := c.Run()
	if err != nil {
		Ui.Error(err.Error())
		return 1
	}
	return exitCode
}
