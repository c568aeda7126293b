// Package logger configures walletd's slog output.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LogFileName is the file written under DataDir when no LOG_FILE is set.
const LogFileName = "walletd.log"

type Config struct {
	DataDir string
	DevMode bool

	// Command names the walletd subcommand and is attached to every record.
	Command string

	// Level applies when LOG_LEVEL is unset. The zero value is Info.
	// One-shot commands pass Warn so their terminal output stays readable.
	Level slog.Level
}

// Init builds the process logger and installs it as the slog default.
//
// A long-running (non-dev) command with a DataDir logs to DataDir/walletd.log;
// anything else logs to stderr. LOG_FILE overrides the destination, LOG_LEVEL
// the level and LOG_FORMAT=json switches to JSON records.
func Init(cfg Config) *slog.Logger {
	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = parseLevel(env)
	}

	w := openOutput(logPath(cfg))
	log := slog.New(newHandler(w, os.Getenv("LOG_FORMAT"), &slog.HandlerOptions{Level: level})).
		With("service", "walletd")
	if cfg.Command != "" {
		log = log.With("cmd", cfg.Command)
	}
	slog.SetDefault(log)
	return log
}

func logPath(cfg Config) string {
	if p := os.Getenv("LOG_FILE"); p != "" {
		return p
	}
	if cfg.DevMode || cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, LogFileName)
}

// openOutput falls back to stderr when path is empty or unusable.
func openOutput(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		slog.Error("cannot create log directory, logging to stderr", "file", path, "error", err)
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("cannot open log file, logging to stderr", "file", path, "error", err)
		return os.Stderr
	}
	return f
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithOp returns a logger tagged with the operation name and a unique opId.
func WithOp(log *slog.Logger, op string) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	return log.With("op", op, "opId", uuid.Must(uuid.NewV7()).String())
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
