package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := defaultConfigPath
	if p := os.Getenv("MCX_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("failed to load config: %v", err)
		}
		config = loaded
	} else if err := shared.ApplyEnv(config); err != nil {
		logger.Fatalf("failed to read environment: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "mcx",
		Usage:    "Install, mod and launch Minecraft instances",
		Version:  config.Launcher.Version,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented", "error", err)
			return
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
