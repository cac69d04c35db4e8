package main

import (
	"strings"
	"testing"

	"github.com/mitchellh/cli"
)

func TestVersionCommandImplementsCLICommand(t *testing.T) {
	var _ cli.Command = &VersionCommand{}
}

func TestVersionCommand(t *testing.T) {
	ui := cli.NewMockUi()
	c := &VersionCommand{Ui: ui, Version: "1.2.3"}

	if code := c.Run(nil); code != 0 {
		t.Fatalf("bad exit code: %d\n%s", code, ui.ErrorWriter.String())
	}

	got := strings.TrimSpace(ui.OutputWriter.String())
	if got != "vegafusion v1.2.3" {
		t.Fatalf("got %q", got)
	}
}
