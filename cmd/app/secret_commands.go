package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sentinel/cmd/app/commands"
	"github.com/allisson/sentinel/internal/app"
	"github.com/allisson/sentinel/internal/config"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

func getSecretCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-secret",
			Usage: "Generate a random value for a secret type without storing it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Secret type (signing_key, audit_key, oauth_client_secret, encryption_key)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunGenerateSecret(
					secretService.NewRandomGenerator(),
					commands.DefaultIO().Writer,
					cmd.String("type"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-secret",
			Usage: "Rotate a secret type immediately",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Secret type (signing_key, audit_key, oauth_client_secret, encryption_key)",
				},
				&cli.StringFlag{
					Name:    "reason",
					Aliases: []string{"r"},
					Usage:   "Reason recorded in the audit log",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				manager, err := container.RotationManager()
				if err != nil {
					return err
				}

				return commands.RunRotateSecret(
					ctx,
					manager,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("type"),
					cmd.String("reason"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-secrets",
			Usage: "List stored secret versions without their values",
			Flags: []cli.Flag{
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				manager, err := container.RotationManager()
				if err != nil {
					return err
				}

				return commands.RunListSecrets(ctx, manager, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
	}
}
