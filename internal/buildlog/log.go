// Package buildlog provides the process-wide logger registry used by every
// package in the swap engine. Packages declare a replaceable package-level
// logger and register it here; SetLogLevel (or SetBackend, for callers that
// want to supply their own backend) rewires all of them at once.
package buildlog

import (
	"os"

	"github.com/decred/slog"
)

// Level mirrors the single process-wide integer log level the engine
// exposes to embedders: 0=error, 1=warn, 2=info, 3=debug.
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// replaceableLogger lets a package hold a *logger value before the final
// backend is known, and have it swapped in-place once SetLogLevel or
// SetBackend runs.
type replaceableLogger struct {
	slog.Logger
	subsystem string
}

var (
	backend    = slog.NewBackend(os.Stderr)
	registered []*replaceableLogger

	// level is the level last passed to SetLogLevel, or nil before the
	// first call.
	level *Level
)

// NewSubLogger allocates a logger for subsystem. It is safe to use
// immediately (it logs nowhere useful until SetLogLevel runs), and will be
// rewired transparently once the process calls SetLogLevel.
func NewSubLogger(subsystem string) slog.Logger {
	l := &replaceableLogger{
		Logger:    backend.Logger(subsystem),
		subsystem: subsystem,
	}
	if level != nil {
		l.Logger.SetLevel(level.slogLevel())
	}
	registered = append(registered, l)
	return l
}

// SetLogLevel applies lvl to every logger created via NewSubLogger so far,
// and to every one created afterwards. Call once at process startup, before
// any swap goroutine runs; the engine's single-threaded cooperative
// scheduling model means nothing else touches the registry concurrently,
// so no mutex guards it.
func SetLogLevel(lvl Level) {
	level = &lvl
	for _, l := range registered {
		l.Logger.SetLevel(lvl.slogLevel())
	}
}

// SetBackend swaps the slog.Backend used by all loggers, e.g. to redirect
// into an embedder's own log file instead of stderr.
func SetBackend(b *slog.Backend) {
	backend = b
	for _, l := range registered {
		l.Logger = backend.Logger(l.subsystem)
		if level != nil {
			l.Logger.SetLevel(level.slogLevel())
		}
	}
}
