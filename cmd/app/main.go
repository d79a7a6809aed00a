package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/arving/kbmirror/internal"
	pkgconfig "github.com/arving/kbmirror/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil || cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Command-line flags override file values.
	if cmd.IsSet("dest") {
		cfg.Mirror.Dest = cmd.String("dest")
	}
	if cmd.IsSet("base-url") {
		cfg.Source.BaseURL = cmd.String("base-url")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runMirror(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if book := cmd.Args().First(); book != "" {
		opts = append(opts, internal.WithBook(book))
	}

	return internal.RunMirror(ctx, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	sharedFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "dest",
			Aliases: []string{"d"},
			Usage:   "Destination directory for the mirrored tree",
			Sources: cli.EnvVars("KBMIRROR_DEST"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of the knowledge base",
			Sources: cli.EnvVars("KBMIRROR_BASE_URL"),
		},
	}

	cmd := &cli.Command{
		Name:  "kbmirror",
		Usage: "Mirror a hosted knowledge base into a local Markdown tree, with resume, search, and serving",
		Commands: []*cli.Command{
			{
				Name:      "mirror",
				Usage:     "Mirror a book into the destination directory (re-run to resume)",
				ArgsUsage: "[book URL]",
				Flags:     sharedFlags,
				Action:    runMirror,
			},
			{
				Name:   "serve",
				Usage:  "Serve an existing mirror over a read-only HTTP API",
				Flags:  sharedFlags,
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Expose an existing mirror to MCP clients over stdio",
				Flags:  sharedFlags,
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
