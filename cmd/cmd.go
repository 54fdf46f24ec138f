// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "musicvid",
		Usage:   "Play the music video for whatever Spotify is playing",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.load,
		After:    r.close,
		Commands: r.register(),
	}
}

// setupCommand handles config and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if needed, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// spotifyCommand handles Spotify authorization and inspection.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2 and save the token to the config file",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "status",
				Usage: "Show the authorized account and what it is playing",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyStatus,
			},
		},
	}
}

// watchCommand runs a local poller.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll Spotify and deliver a video link whenever the track changes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "deliver",
				Aliases: []string{"d"},
				Usage:   "Where to send links: stdout, browser or both",
				Value:   "stdout",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single poll cycle and exit",
			},
			&cli.StringFlag{
				Name:  "viewer",
				Usage: "Viewer id recorded in the delivery history",
				Value: "local",
			},
		},
		Action: r.Watch,
	}
}

// serveCommand runs the websocket viewer server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve viewers over websocket (GET /ws), with /healthz and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand runs a single video search.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search YouTube for a video",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

func trackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "artist",
			Aliases:  []string{"a"},
			Usage:    "Track artist",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "title",
			Aliases:  []string{"t"},
			Usage:    "Track title",
			Required: true,
		},
	}
}

// cacheCommand inspects and manages the stored track to video mappings.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage stored track to video mappings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored mappings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Only songs by this artist",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Only songs with this title",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of songs to list",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, csv, markdown or json",
						Value:   "txt",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "lookup",
				Usage:  "Show the stored video for a track",
				Flags:  trackFlags(),
				Action: r.CacheLookup,
			},
			{
				Name:   "forget",
				Usage:  "Remove the stored video for a track so it is searched again",
				Flags:  trackFlags(),
				Action: r.CacheForget,
			},
			{
				Name:  "warm",
				Usage: "Resolve a list of tracks ahead of time",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Track list (\"Artist - Title\" per line or a cache list CSV); stdin when omitted",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Resolutions started per second",
						Value: 2,
					},
				},
				Action: r.CacheWarm,
			},
		},
	}
}

// historyCommand shows and prunes the delivery history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently delivered videos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "viewer",
				Usage: "Only deliveries to this viewer",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of deliveries",
				Value: 20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, csv, markdown or json",
				Value:   "txt",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete deliveries older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age cutoff, e.g. 720h",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}
