// Package logger provides structured logging for all taskvault components,
// backed by log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging interface handed to components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithField(key string, value any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}

var (
	mu   sync.RWMutex
	root Logger = &slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))}
)

// Options controls the global logger configuration.
type Options struct {
	// Level is the minimum level to emit.
	Level slog.Level
	// JSON switches the handler from text to JSON output.
	JSON bool
	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// Init replaces the global logger. Safe to call before serving; components
// created afterwards pick up the new configuration.
func Init(opts Options) {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}

	mu.Lock()
	root = &slogLogger{l: slog.New(handler)}
	mu.Unlock()
}

// WithField returns the global logger with an attached field.
func WithField(key string, value any) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.WithField(key, value)
}
