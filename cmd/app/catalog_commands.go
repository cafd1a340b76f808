package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/filecatalog/cmd/app/commands"
	"github.com/allisson/filecatalog/internal/app"
	"github.com/allisson/filecatalog/internal/config"
)

func getCatalogCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "import-files",
			Usage: "Import a batch of files from a JSON document",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Path to a JSON array of import items",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   0,
					Usage:   "Rows per transaction (0 uses the configured default)",
				},
				&cli.BoolFlag{
					Name:  "skip-search",
					Value: false,
					Usage: "Defer search projection to the outbox instead of projecting inline",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				importUseCase, err := container.ImportUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize import use case: %w", err)
				}

				return commands.RunImportFiles(
					ctx,
					importUseCase,
					container.Logger(),
					os.Stdout,
					cmd.String("file"),
					int(cmd.Int("batch-size")),
					cmd.Bool("skip-search"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-integrity",
			Usage: "Cross-check catalog rows against the full-text index",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				integrityService, err := container.IntegrityService()
				if err != nil {
					return fmt.Errorf("failed to initialize integrity service: %w", err)
				}

				return commands.RunVerifyIntegrity(
					ctx,
					integrityService,
					container.Logger(),
					os.Stdout,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "repair-index",
			Usage: "Rebuild missing index entries and drop orphans",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "all",
					Aliases: []string{"a"},
					Value:   false,
					Usage:   "Reindex every document instead of only the discrepancies",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				integrityService, err := container.IntegrityService()
				if err != nil {
					return fmt.Errorf("failed to initialize integrity service: %w", err)
				}

				return commands.RunRepairIndex(
					ctx,
					integrityService,
					container.Logger(),
					os.Stdout,
					cmd.Bool("all"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "drain-outbox",
			Usage: "Process pending outbox events until the backlog is empty",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize outbox use case: %w", err)
				}

				return commands.RunDrainOutbox(
					ctx,
					outboxUseCase,
					container.Logger(),
					os.Stdout,
					cmd.String("format"),
				)
			},
		},
	}
}
