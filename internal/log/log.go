// Package log provides structured logging for go-frcvision.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	FileMaxSizeMB  = 100
	FileMaxBackups = 3
	FileMaxAgeDays = 7
)

var (
	logger *slog.Logger
	closer io.Closer = nopCloser{}
	once   sync.Once
)

// Options configures the global logger.
type Options struct {
	// Level is "debug", "info", "warn" or "error".
	Level string

	// File, when set, receives a copy of every record and is rotated by
	// size.
	File string

	// JSON forces JSON output. It is implied by GO_ENV=production.
	JSON bool
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to out and, if configured, a rotating file.
// The returned closer flushes and closes the file.
func New(opts Options, out io.Writer) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var c io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    FileMaxSizeMB,
			MaxAge:     FileMaxAgeDays,
			MaxBackups: FileMaxBackups,
		}
		out = io.MultiWriter(out, file)
		c = file
	}

	// Use JSON in production, text in development
	if opts.JSON || os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(out, handlerOpts)), c
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts)), c
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	InitWithOptions(Options{Level: level})
}

// InitWithOptions initializes the global logger. Only the first call has
// any effect.
func InitWithOptions(opts Options) {
	once.Do(func() {
		logger, closer = New(opts, os.Stdout)
		slog.SetDefault(logger)
	})
}

// Close closes the log file, if any.
func Close() error {
	return closer.Close()
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
