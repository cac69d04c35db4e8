package main

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// version is the version string reported by the version command and
// embedded into cli.NewCLI, overridable at link time via
// -ldflags "-X main.version=...".
var version = "0.1.0-dev"

// commands builds the mapping of every vegafusion subcommand, following
// the teacher's commands map pattern (cmd/tofu/commands.go).
func commands(logger hclog.Logger) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"plan": func() (cli.Command, error) {
			return &PlanCommand{Ui: Ui, Logger: logger.Named("plan")}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Ui: Ui, Version: version}, nil
		},
	}
}
