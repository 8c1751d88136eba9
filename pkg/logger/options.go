package logger

import (
	"io"
	"log/slog"
)

// Option configures New.
type Option func(*settings)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the charmbracelet/log handler, for terminals.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		if pretty && s.format != formatJSON {
			s.format = formatPretty
		}
	}
}

// WithJSON selects slog's JSON handler, for services and log files.
func WithJSON(json bool) Option {
	return func(s *settings) {
		if json {
			s.format = formatJSON
		}
	}
}

// WithWriter replaces the output with w.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to each of ws.
func WithWriters(ws ...io.Writer) Option {
	return func(s *settings) {
		s.writers = ws
	}
}

// WithSource adds the caller's file and line.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}

// WithRedact masks attributes with these keys in addition to
// DefaultRedactKeys.
func WithRedact(keys ...string) Option {
	return func(s *settings) {
		s.redact = append(s.redact, keys...)
	}
}
