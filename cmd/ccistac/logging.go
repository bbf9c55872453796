package main

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// setupLogger builds the process logger. Logs go to w so that reports on
// stdout stay clean; "pretty" renders colored lines for terminals.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	case "pretty":
		handler = log.NewWithOptions(w, log.Options{
			Level:           log.Level(logLevel),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}
