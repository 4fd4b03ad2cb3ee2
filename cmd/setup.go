package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/shared"
)

// Setup writes a config file when none exists, creates the application directory and migrates the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	root := config.RootDir()
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create application directory: %w", err)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	version, _, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Root: %s\n", root)
	r.writePlain("Database: %s (schema %d)\n", shared.ExpandPath(config.Database.Path), version)
	return nil
}
