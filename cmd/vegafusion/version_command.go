package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"
)

// VersionCommand prints the vegafusion version (teacher:
// internal/command/version.go).
type VersionCommand struct {
	Ui      cli.Ui
	Version string
}

func (c *VersionCommand) Help() string {
	return strings.TrimSpace(`
Usage: vegafusion version

  Prints the vegafusion version.
`)
}

func (c *VersionCommand) Synopsis() string { return "Print the vegafusion version" }

func (c *VersionCommand) Run(args []string) int {
	c.Ui.Output(fmt.Sprintf("vegafusion v%s", c.Version))
	return 0
}
