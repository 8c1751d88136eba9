// Package logger builds the *slog.Logger used by ragline services and CLI
// commands. Every logger masks credential attributes before they reach a
// handler.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type settings struct {
	level   slog.Level
	format  format
	source  bool
	writers []io.Writer
	redact  []string
}

type format int

const (
	formatText format = iota
	formatPretty
	formatJSON
)

// New builds a logger. Without options it writes Info and above as slog text
// to os.Stdout. JSON takes precedence over pretty when both are requested.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}

	w := io.Writer(os.Stdout)
	if len(s.writers) == 1 {
		w = s.writers[0]
	} else if len(s.writers) > 1 {
		w = io.MultiWriter(s.writers...)
	}

	var h slog.Handler
	switch s.format {
	case formatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	case formatPretty:
		h = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.source,
		})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.level, AddSource: s.source})
	}

	return slog.New(newRedactHandler(h, append(DefaultRedactKeys(), s.redact...)))
}

// Nop returns a logger that discards every record.
func Nop() *slog.Logger {
	return slog.New(discard{})
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
