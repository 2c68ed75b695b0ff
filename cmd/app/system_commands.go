package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/dsorch/orchestrator/cmd/app/commands"
	"github.com/dsorch/orchestrator/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "show-config",
			Usage: "Print the effective configuration with secrets masked",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunShowConfig(
					config.Load(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
