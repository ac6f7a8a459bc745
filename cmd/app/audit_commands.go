package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sentinel/cmd/app/commands"
	"github.com/allisson/sentinel/internal/app"
	"github.com/allisson/sentinel/internal/config"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "verify-audit-logs",
			Usage: "Verify hash chain and signatures of stored audit logs",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "from",
					Value: 1,
					Usage: "First sequence number to verify",
				},
				&cli.Uint64Flag{
					Name:  "to",
					Value: 0,
					Usage: "Last sequence number to verify (0 for the chain tail)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				repository, err := container.AuditEntryRepository()
				if err != nil {
					return err
				}

				auditLogger, err := container.AuditLogger()
				if err != nil {
					return err
				}

				return commands.RunVerifyAuditLogs(
					ctx,
					repository,
					auditLogger,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Uint64("from"),
					cmd.Uint64("to"),
					cmd.String("format"),
				)
			},
		},
	}
}
