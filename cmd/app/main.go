package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/envtest/internal"
	pkgconfig "github.com/starford/envtest/pkg/config"
)

var version = "dev"

// loadConfig reads the optional YAML config and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("log-dir"); dir != "" {
		cfg.Log.Dir = dir
	}
	if home := cmd.String("home"); home != "" {
		cfg.Heroic.Home = home
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func call(ctx context.Context, cmd *cli.Command) error {
	op := cmd.Args().First()
	if op == "" {
		return fmt.Errorf("operation name is required (debug_log or pull_heroic_data)")
	}

	var data []byte
	if cmd.IsSet("data") {
		data = []byte(cmd.String("data"))
	} else {
		var err error
		if data, err = io.ReadAll(os.Stdin); err != nil {
			return fmt.Errorf("read request from stdin: %w", err)
		}
	}

	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Call(ctx, op, data, os.Stdout, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "envtest",
		Usage:   "Game metadata logger and Heroic launcher lookup backend",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-dir",
				Usage:   "Directory daily log files are written to (default ~/choochoo)",
				Sources: cli.EnvVars("DECKY_PLUGIN_LOG_DIR"),
			},
			&cli.StringFlag{
				Name:    "home",
				Usage:   "Home directory Heroic configuration is read from",
				Sources: cli.EnvVars("ENVTEST_HOME"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live record events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the operations as MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "call",
				Usage:     "Run one operation and print its JSON envelope",
				ArgsUsage: "[--data JSON] <debug_log|pull_heroic_data>",
				Action:    call,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON request; read from stdin when omitted",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
