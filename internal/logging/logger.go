// Package logging provides the leveled log sink used by migui components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Numeric severity levels. Lower numbers are more verbose.
const (
	LevelTrace = 0
	LevelDebug = 1
	LevelInfo  = 2
	LevelWarn  = 3
	LevelError = 4
)

// slogLevelTrace sits below slog.LevelDebug.
const slogLevelTrace = slog.LevelDebug - 4

// FailureTitle is logged when a remote object cannot be resolved.
const FailureTitle = "remote object resolution failed"

// Format selects the handler used by a Sink.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Sink is a leveled logger whose threshold can be changed at runtime.
type Sink struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// New creates a Sink writing to w. A nil writer means stderr.
// The initial level is LevelWarn, matching the CLI default.
func New(w io.Writer, format Format) *Sink {
	if w == nil {
		w = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= slogLevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if Format(strings.ToLower(string(format))) == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Sink{
		logger: slog.New(handler),
		level:  level,
	}
}

// NewNop returns a Sink that discards everything.
func NewNop() *Sink {
	return New(io.Discard, FormatText)
}

// SetLevel sets the severity threshold from a numeric level.
// Values outside the known range are clamped.
func (s *Sink) SetLevel(n int) {
	s.level.Set(ToSlog(n))
}

// Level returns the current threshold as a numeric level.
func (s *Sink) Level() int {
	return FromSlog(s.level.Level())
}

// Logger returns the underlying structured logger.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// OnFailure logs err at error severity under a fixed title.
func (s *Sink) OnFailure(err error) {
	s.logger.Error(FailureTitle, "error", err)
}

// ToSlog converts a numeric level to a slog.Level.
func ToSlog(n int) slog.Level {
	switch {
	case n <= LevelTrace:
		return slogLevelTrace
	case n == LevelDebug:
		return slog.LevelDebug
	case n == LevelInfo:
		return slog.LevelInfo
	case n == LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// FromSlog converts a slog.Level to the nearest numeric level.
func FromSlog(l slog.Level) int {
	switch {
	case l < slog.LevelDebug:
		return LevelTrace
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// LevelName returns the lowercase name of a numeric level.
func LevelName(n int) string {
	switch {
	case n <= LevelTrace:
		return "trace"
	case n == LevelDebug:
		return "debug"
	case n == LevelInfo:
		return "info"
	case n == LevelWarn:
		return "warn"
	default:
		return "error"
	}
}
