// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func instanceArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "instance", UsageText: "instance id or title"}}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, application directory and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
		},
		Action: r.Setup,
	}
}

// instanceCommand manages instance definitions
func instanceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "instance",
		Aliases: []string{"i"},
		Usage:   "Create, list and remove instances",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an instance",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "minecraft",
						Aliases:  []string{"m"},
						Usage:    "Game version, e.g. 1.20.1",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "loader",
						Aliases: []string{"l"},
						Usage:   "Mod loader (forge, fabric, quilt), optionally with a version: forge-47.2.0",
					},
					&cli.StringFlag{
						Name:  "loader-version",
						Usage: "Mod loader version",
					},
					&cli.StringFlag{
						Name:  "side",
						Usage: "Install side (client or server)",
						Value: "client",
					},
					&cli.StringFlag{
						Name:  "memory",
						Usage: "Heap size passed as -Xms/-Xmx, e.g. 4G",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.InstanceCreate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List instances",
				Flags:   jsonFlags(),
				Action:  r.InstanceList,
			},
			{
				Name:      "show",
				Usage:     "Show an instance",
				Arguments: instanceArg(),
				Flags:     jsonFlags(),
				Action:    r.InstanceShow,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an instance and its files",
				Arguments: instanceArg(),
				Action:    r.InstanceDelete,
			},
		},
	}
}

func installCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Download the game, loader, mods and libraries of an instance",
		Arguments: instanceArg(),
		Action:    r.Install,
	}
}

func launchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Aliases:   []string{"run"},
		Usage:     "Install and start an instance",
		Arguments: instanceArg(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log the game's output",
			},
			&cli.BoolFlag{
				Name:  "detach",
				Usage: "Return once the game has started",
			},
		},
		Action: r.Launch,
	}
}

// modCommand handles mod installation for one instance
func modCommand(r *Runner) *cli.Command {
	modFlags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.IntFlag{
				Name:     "mod",
				Usage:    "Catalog mod id",
				Required: true,
			},
		}, extra...)
	}
	fileFlag := &cli.IntFlag{
		Name:  "file",
		Usage: "Catalog file id (default: newest compatible file)",
	}

	return &cli.Command{
		Name:  "mod",
		Usage: "Install, update and remove mods",
		Commands: []*cli.Command{
			{
				Name:      "install",
				Usage:     "Install a mod and its required dependencies",
				Arguments: instanceArg(),
				Flags: modFlags(fileFlag, &cli.BoolFlag{
					Name:  "no-deps",
					Usage: "Skip required dependencies",
				}),
				Action: r.ModInstall,
			},
			{
				Name:      "uninstall",
				Aliases:   []string{"rm"},
				Usage:     "Remove a mod and the dependencies only it needed",
				Arguments: instanceArg(),
				Flags: modFlags(&cli.BoolFlag{
					Name:  "no-cascade",
					Usage: "Keep the mod's dependencies",
				}),
				Action: r.ModUninstall,
			},
			{
				Name:      "update",
				Usage:     "Move a mod to another file",
				Arguments: instanceArg(),
				Flags:     modFlags(fileFlag),
				Action:    r.ModUpdate,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List installed mods",
				Arguments: instanceArg(),
				Flags:     jsonFlags(),
				Action:    r.ModList,
			},
			{
				Name:      "export",
				Usage:     "Write the mod list to a file",
				Arguments: instanceArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, text)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory (default: ./modlist.<ext>)",
					},
				},
				Action: r.ModExport,
			},
			{
				Name:      "search",
				Usage:     "Search the catalog",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:    "minecraft",
						Aliases: []string{"m"},
						Usage:   "Game version",
					},
					&cli.StringFlag{
						Name:    "loader",
						Aliases: []string{"l"},
						Usage:   "Mod loader",
					},
					&cli.BoolFlag{
						Name:  "modpacks",
						Usage: "Search mod packs instead of mods",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 20,
					},
				),
				Action: r.ModSearch,
			},
		},
	}
}

// modpackCommand handles catalog mod packs
func modpackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "modpack",
		Aliases: []string{"pack"},
		Usage:   "Install and update mod packs",
		Commands: []*cli.Command{
			{
				Name:  "install",
				Usage: "Create an instance from a mod pack",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "pack",
						Usage:    "Catalog mod pack id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "file",
						Usage: "Pack file id (default: newest)",
					},
				},
				Action: r.ModPackInstall,
			},
			{
				Name:      "update",
				Usage:     "Update a mod pack instance to another pack file",
				Arguments: instanceArg(),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "file",
						Usage: "Pack file id (default: newest)",
					},
				},
				Action: r.ModPackUpdate,
			},
		},
	}
}

func versionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "versions",
		Usage: "List game versions and mod loader builds",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List game versions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include snapshots and old versions",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of versions",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.VersionsList,
			},
			{
				Name:  "loaders",
				Usage: "List mod loader builds for a game version",
				Flags: append(jsonFlags(),
					&cli.StringFlag{
						Name:     "minecraft",
						Aliases:  []string{"m"},
						Usage:    "Game version",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "loader",
						Aliases: []string{"l"},
						Usage:   "Mod loader",
						Value:   "forge",
					},
				),
				Action: r.VersionsLoaders,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the player session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Store a signed-in session in the OS keyring",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Player name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "uuid",
						Usage:    "Player UUID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "access-token",
						Usage:    "Game access token",
						Sources:  cli.EnvVars("MCX_ACCESS_TOKEN"),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "refresh-token",
						Usage:   "OAuth2 refresh token",
						Sources: cli.EnvVars("MCX_REFRESH_TOKEN"),
					},
					&cli.DurationFlag{
						Name:  "expires-in",
						Usage: "Access token lifetime, e.g. 24h",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Show the stored profile",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthWhoami,
			},
		},
	}
}

// cacheCommand inspects the download index and launch history
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect downloaded files and launch history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List indexed files",
				Flags: append(jsonFlags(), &cli.StringFlag{
					Name:  "kind",
					Usage: "Artifact kind (library, asset, mod, version, java_runtime, ...)",
				}),
				Action: r.CacheList,
			},
			{
				Name:   "prune",
				Usage:  "Drop index entries of deleted files",
				Action: r.CachePrune,
			},
			{
				Name:      "history",
				Usage:     "Show recent launches of an instance",
				Arguments: instanceArg(),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of launches",
						Value: 10,
					},
				},
				Action: r.CacheHistory,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
