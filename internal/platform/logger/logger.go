package logger

import (
	"log/slog"
	"os"
)

// New returns the service's structured logger, writing text lines to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
