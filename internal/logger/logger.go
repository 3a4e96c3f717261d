package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/inferworker/internal/env"
	"github.com/ekisa-team/inferworker/internal/envvar"
)

type options struct {
	level     slog.Level
	logFile   string
	logToFile bool
	out       io.Writer
}

// Option configures the logger.
type Option func(*options)

// WithLogToFile enables writing logs to a rotated file in addition to stderr.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the path of the rotated log file.
func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithOutput replaces stderr as the primary output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// New builds a logger for the given environment. Development gets a colored tint
// handler, production gets JSON.
func New(e env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		level:   LevelFromEnv(),
		logFile: filepath.Join("logs", "inferworker.log"),
		out:     os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	w := o.out
	if o.logToFile {
		w = io.MultiWriter(w, NewRotatingFile(o.logFile))
	}

	if e.IsDevelopment() {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.level}))
}

// NewRotatingFile returns a size-rotated file writer.
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
	}
}

// LevelFromEnv parses INFERWORKER_LOG_LEVEL, defaulting to info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv(envvar.InferworkerLogLevel)) {
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
