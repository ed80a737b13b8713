package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"playlistpulse/pkg/contracts"
)

func main() {
	runner := NewRunner(RunnerOpts{})

	app := &cli.Command{
		Name:     "playlistctl",
		Usage:    "Analyze playlist performance exports from the command line",
		Version:  contracts.GetFullVersionString(),
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
