// Package logging builds the service logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/RackSec/srslog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/axonops/protodyn/internal/config"
)

// New creates a slog logger per the logging configuration: JSON or text
// handler, writing to stdout and optionally to a rolling file and syslog.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	writers := []io.Writer{os.Stdout}

	if cfg.File.Path != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    orDefault(cfg.File.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.File.MaxBackups, 3),
			MaxAge:     orDefault(cfg.File.MaxAgeDays, 28),
			Compress:   cfg.File.Compress,
		})
	}

	if cfg.Syslog.Enabled {
		w, err := srslog.Dial(cfg.Syslog.Network, cfg.Syslog.Address, srslog.LOG_INFO|srslog.LOG_DAEMON, cfg.Syslog.Tag)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		writers = append(writers, w)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
