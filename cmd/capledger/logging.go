package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/capledger/capledger/internal/config"
)

// setupLogging installs the default logger. With a log file configured,
// records are written as JSON to the file, rotated once it exceeds
// max_size_mb. Otherwise text records go to stderr.
func setupLogging(cfg *config.Config, debug bool) (func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			level = slog.LevelDebug
		case config.LogLevelWarn:
			level = slog.LevelWarn
		case config.LogLevelError:
			level = slog.LevelError
		}
	}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	if logPath == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return func() {}, nil
	}

	w, err := logWriter(logPath, cfg.Logging)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return func() { w.Close() }, nil
}

// logWriter opens the log file. A max_size_mb of zero disables rotation;
// otherwise the file is rolled over at that size and max_backups old files
// are kept, zero keeping all of them.
func logWriter(path string, cfg config.LoggingConfig) (io.WriteCloser, error) {
	if cfg.MaxSizeMB == 0 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, nil
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}, nil
}
