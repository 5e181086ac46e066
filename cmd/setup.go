package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/statify/internal/shared"
	"github.com/desertthunder/statify/internal/store"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlain("Fill in your Spotify credentials before running: statify serve\n")
	return nil
}

// SetupDatabase initializes the SQLite session store and applies its schema.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		config = shared.DefaultConfig()
	}

	sc := config.Store.SQLite
	r.logger.Info("initializing session store", "path", sc.Path)

	s, err := store.OpenSQLiteStore(sc.Path, sc.MaxOpenConns, sc.MaxIdleConns)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer s.Close()

	r.logger.Infof("setup complete for session store: %v", sc.Path)
	r.writePlain("✓ Session store ready at %s\n", sc.Path)
	return nil
}

// setupCommand handles setup operations for configuration and the local store.
func setupCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:    "database",
				Aliases: []string{"db"},
				Usage:   "Initialize the SQLite session store and run migrations",
				Flags:   []cli.Flag{configFlag()},
				Action:  r.SetupDatabase,
			},
		},
	}
}
