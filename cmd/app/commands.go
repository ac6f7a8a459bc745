package main

import (
	"github.com/urfave/cli/v3"
)

// formatFlag is shared by every command that prints a result.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getSecretCommands()...)
	cmds = append(cmds, getSigningCommands()...)
	cmds = append(cmds, getAuditCommands()...)
	return cmds
}
