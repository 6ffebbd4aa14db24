// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envie/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "envie",
		Usage:   "End-to-end encrypted configuration manager",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, cmd.Root().Version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "sweep-expired-rotations",
				Usage: "Finalize pending key rotations past their deadline",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSweepExpiredRotations(ctx)
				},
			},
			{
				Name:  "clean-expired-linking-codes",
				Usage: "Delete expired device linking codes",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpiredLinkingCodes(ctx)
				},
			},
			{
				Name:  "create-project-token",
				Usage: "Create a project token from this device",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project-id",
						Usage:    "id of the project the token grants access to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "display name for the token",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "token lifetime (0 means no expiry)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateProjectToken(
						ctx,
						commands.DefaultIO(),
						cmd.String("project-id"),
						cmd.String("name"),
						cmd.Duration("ttl"),
					)
				},
			},
			{
				Name:  "rotate-master-key",
				Usage: "Rotate the master keypair of this device's user",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateMasterKey(ctx, commands.DefaultIO())
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
