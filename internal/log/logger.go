// Package log wraps slog with a per-component attribute so every line
// names the subsystem that produced it.
package log

import (
	"log/slog"
	"os"
)

// Logger adds a fixed component attribute to an slog.Logger.
type Logger struct {
	*slog.Logger
	component string
}

// New builds a text-handler logger at the given level and installs it
// as the process default.
func New(level slog.Level) *Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	l := &Logger{Logger: slog.New(h), component: "app"}
	slog.SetDefault(l.Logger)
	return l
}

// WithComponent returns a logger whose lines carry the component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}
