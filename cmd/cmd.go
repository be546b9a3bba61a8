// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, database and run migrations",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Setup,
	}
}

// syncCommand reconciles the local liked-songs cache with the service
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync liked songs into the local cache",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip freshness checks and re-fetch everything",
			},
			&cli.IntFlag{
				Name:  "max-age",
				Usage: "Cache freshness window in hours (0 uses config)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the sync result as JSON",
			},
		},
		Action: r.Sync,
	}
}

// libraryCommand handles cached library operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Inspect and export the cached library",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List cached liked songs (syncs first unless --cached)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Serve the cache without syncing",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to display",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.LibraryShow,
			},
			{
				Name:  "export",
				Usage: "Export the cached library to a file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: json or csv",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Base output path (without extension)",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:  "clear",
				Usage: "Drop the cached library and sync bookkeeping",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.LibraryClear,
			},
			{
				Name:  "status",
				Usage: "Show sync metadata for the cached library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LibraryStatus,
			},
		},
	}
}

// inboxCommand handles triage of the inbox playlist
func inboxCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "Triage the inbox playlist",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "List inbox tracks with liked and cached state",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.InboxScan,
			},
			{
				Name:  "promote",
				Usage: "Save an inbox track to liked songs and remove it from the inbox",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "track-id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.InboxPromote,
			},
			{
				Name:  "demote",
				Usage: "Remove a track from the inbox",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "track-id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "unlike",
						Usage: "Also remove the track from liked songs",
					},
				},
				Action: r.InboxDemote,
			},
			{
				Name:  "archive",
				Usage: "Move stale inbox tracks into a dated archive playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "older-than",
						Usage: "Archive tracks added more than this many days ago (0 uses config)",
					},
				},
				Action: r.InboxArchive,
			},
			{
				Name:  "undo",
				Usage: "Revert the most recent triage action",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.InboxUndo,
			},
		},
	}
}
