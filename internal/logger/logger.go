// Package logger provides the structured slog loggers used across the
// engine. All logs are written in JSON format to <logDir>/notifier.log with
// size-based rotation.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created under the log directory.
const FileName = "notifier.log"

// New creates a JSON slog.Logger that writes to <logDir>/notifier.log,
// rotating the file at 50 MB and keeping five compressed backups. The
// directory is created if it does not exist.
func New(logDir string, level slog.Level) (*slog.Logger, error) {
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}

	out := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}
