// Package log provides logging for taskflows.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// New returns a text logger on stderr. Verbose lowers the level to debug.
func New(verbose bool) Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	return &slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, opts))}
}

// FromSlog wraps an existing slog.Logger.
func FromSlog(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
