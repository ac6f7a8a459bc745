package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sentinel/cmd/app/commands"
	"github.com/allisson/sentinel/internal/app"
	"github.com/allisson/sentinel/internal/config"
)

func getSigningCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "sign-request",
			Usage: "Print the signature headers for a request",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "method",
					Aliases: []string{"X"},
					Value:   "GET",
					Usage:   "HTTP method",
				},
				&cli.StringFlag{
					Name:     "url",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Request path with optional query (e.g., /v1/secrets?limit=10)",
				},
				&cli.StringFlag{
					Name:    "body",
					Aliases: []string{"d"},
					Usage:   "Request body",
				},
				&cli.StringSliceFlag{
					Name:    "header",
					Aliases: []string{"H"},
					Usage:   "Header folded into the signature, as 'Name: value' (repeatable)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				signer, err := container.Signer()
				if err != nil {
					return err
				}

				return commands.RunSignRequest(
					ctx,
					signer,
					commands.DefaultIO().Writer,
					cmd.String("method"),
					cmd.String("url"),
					cmd.String("body"),
					cmd.StringSlice("header"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-nonces",
			Usage: "Delete nonces whose replay window has ended",
			Flags: []cli.Flag{
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifier, err := container.Verifier()
				if err != nil {
					return err
				}

				return commands.RunCleanNonces(
					ctx,
					verifier,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
