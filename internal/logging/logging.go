// Package logging sets up the slog default logger for ringctl: text records
// into a size-rotated file, mirrored to stderr.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var logFile *lumberjack.Logger

// Setup initializes the logging system. An empty logPath logs to stderr only.
// The returned logger is also installed as the slog default.
func Setup(logPath string, debug bool) (*slog.Logger, error) {
	writers := []io.Writer{os.Stderr}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logFile = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		writers = append(writers, logFile)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// stray log.Printf calls go to the same place
	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	slog.Debug("logging initialized", "path", logPath, "debug", debug)
	return logger, nil
}

// Close closes the log file, if any.
func Close() {
	if logFile == nil {
		return
	}
	if err := logFile.Close(); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to close log file", "error", err)
	}
	logFile = nil
}
