// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Playlist ID",
		Required: true,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config file with the default settings",
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// loginCommand checks that sign-in works end to end.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Sign in with Google in the browser and show the session",
		Action: r.Login,
	}
}

// playlistsCommand lists the signed-in user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List your YouTube playlists",
		Flags:   jsonFlags(),
		Action:  r.Playlists,
	}
}

// itemsCommand prints a playlist's display list.
func itemsCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		idFlag(),
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Only titles containing this text",
		},
		&cli.BoolFlag{
			Name:  "favorites",
			Usage: "Only favorites",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort key: title, views, added, published or none",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Sort direction: asc or desc",
			Value: "desc",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Show every match instead of the first page",
		},
	}
	return &cli.Command{
		Name:   "items",
		Usage:  "List the videos of a playlist in display order",
		Flags:  append(flags, jsonFlags()...),
		Action: r.Items,
	}
}

// durationCommand sums a playlist's running time.
func durationCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "duration",
		Usage:  "Show the total running time of a playlist",
		Flags:  []cli.Flag{idFlag()},
		Action: r.Duration,
	}
}

// exportCommand writes a playlist with its view counts to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a playlist with your view counts and favorites",
		Flags: []cli.Flag{
			idFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown, text or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (markdown: a directory)",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort key: title, views, added, published or none",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Sort direction: asc or desc",
				Value: "desc",
			},
		},
		Action: r.Export,
	}
}

// exportAllCommand writes every playlist to a directory with a manifest.
func exportAllCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export-all",
		Usage: "Export every playlist to a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown, text or json",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: ytloop_export_{timestamp})",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Playlists written concurrently (max 10)",
				Value:   5,
			},
			&cli.BoolFlag{
				Name:  "no-durations",
				Usage: "Skip the video duration lookup",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort key: title, views, added, published or none",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Sort direction: asc or desc",
				Value: "desc",
			},
		},
		Action: r.ExportAll,
	}
}

// cacheCommand inspects the local duration cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the video duration cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many durations are cached",
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete every cached duration",
				Action: r.CacheClear,
			},
		},
	}
}

// prefsCommand reads and changes the durable preferences.
func prefsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "prefs",
		Aliases: []string{"preferences"},
		Usage:   "Show or change preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current preferences",
				Flags:  jsonFlags(),
				Action: r.PrefsShow,
			},
			{
				Name:  "set",
				Usage: "Change one or more preferences",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "theme", Usage: "light or dark"},
					&cli.BoolFlag{Name: "autoplay", Usage: "Play the next video when one ends"},
					&cli.BoolFlag{Name: "loop-window", Usage: "Show a rotating window instead of the full list"},
					&cli.IntFlag{Name: "volume", Usage: "Volume 0-100"},
					&cli.BoolFlag{Name: "low-power", Usage: "Poll the player less often"},
					&cli.BoolFlag{Name: "sidebar", Usage: "Show the playlist sidebar"},
				},
				Action: r.PrefsSet,
			},
			{
				Name:   "reset-views",
				Usage:  "Set every view count back to zero",
				Action: r.ResetViews,
			},
		},
	}
}

// favoriteCommand marks videos as favorites.
func favoriteCommand(r *Runner) *cli.Command {
	arg := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "video"}}
	}
	return &cli.Command{
		Name:    "favorite",
		Aliases: []string{"fav"},
		Usage:   "Manage favorite videos",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Mark a video as a favorite",
				Arguments: arg(),
				Action:    r.FavoriteAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a video from the favorites",
				Arguments: arg(),
				Action:    r.FavoriteRemove,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List favorite video ids",
				Action:  r.FavoriteList,
			},
		},
	}
}

// historyCommand prints recent watch credits.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently credited views",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of entries",
				Value:   20,
			},
		}, jsonFlags()...),
		Action: r.History,
	}
}

// playCommand returns the top-level TUI command.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.Play,
	}
}
