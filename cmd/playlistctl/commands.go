package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"playlistpulse/internal/config"
)

// analyzeCommand runs the dashboard pipeline over files on disk
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute a dashboard view from playlist CSV or XLSX files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory whose .csv and .xlsx files are read in name order",
			},
			&cli.StringFlag{
				Name:  "pattern",
				Usage: "Glob selecting files within --dir, such as 'Artist-*'",
			},
			&cli.StringFlag{
				Name:  "view",
				Usage: "View to compute: top_streams, top_listeners, streams_vs_listeners or time_series",
				Value: "top_streams",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Display mode: chart, table or both",
				Value: "both",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Artist to keep, or All",
				Value: "All",
			},
			&cli.IntFlag{
				Name:    "top-n",
				Aliases: []string{"n"},
				Usage:   fmt.Sprintf("Ranking size, one of %v", r.config.Dashboard.AllowedTopN),
				Value:   config.DefaultTopN,
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "First date to keep (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "Last date to keep (YYYY-MM-DD)",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Include the full cleaned dataset",
			},
			&cli.StringSliceFlag{
				Name:  "date-layout",
				Usage: "Additional Go time layout accepted in date_added",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, xlsx, png or svg",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path; - writes to stdout",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log pipeline stages to stderr",
			},
		},
		Action: r.Analyze,
	}
}

// hashPasswordCommand prints a bcrypt hash of the shared password
func hashPasswordCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for PLAYLIST_SECURITY_PASSWORD_HASH",
		ArgsUsage: "[password]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "password"},
		},
		Action: r.HashPassword,
	}
}
