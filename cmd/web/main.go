package main

import (
	"context"
	"log/slog"
	"os"

	"playlistpulse/internal/app"
)

func main() {
	// The front end, if any, is served from PLAYLIST_SERVER_STATIC_DIR
	application, err := app.NewApplication(nil)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
