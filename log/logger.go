// Package log provides the leveled, structured logging used across the
// engine, queue, and CLI: a thin wrapper over github.com/kataras/golog so
// every component shares one formatting and level convention.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/kataras/golog"
)

// Level is a logging severity, mirroring golog's string levels without
// exposing callers to golog directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelDisabled
)

func (l Level) gologName() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelDisabled:
		return "disable"
	default:
		return "info"
	}
}

// Logger is a leveled logger backed by golog, carrying a fixed prefix
// (e.g. a run or node id) that is prepended to every message.
type Logger struct {
	g      *golog.Logger
	prefix string
}

// New creates a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	g := golog.New()
	g.SetOutput(w)
	g.SetLevel(level.gologName())
	return &Logger{g: g}
}

var defaultLogger = New(os.Stderr, LevelInfo)

// Default returns the package-level logger used when a component is not
// given one explicitly.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) { defaultLogger = l }

// SetLevel changes the minimum level this logger emits.
func (l *Logger) SetLevel(level Level) { l.g.SetLevel(level.gologName()) }

// With returns a child logger that prefixes every message with "key=value".
func (l *Logger) With(key string, value any) *Logger {
	prefix := l.prefix
	if prefix != "" {
		prefix += " "
	}
	prefix += fmt.Sprintf("%s=%v", key, value)
	return &Logger{g: l.g, prefix: prefix}
}

func (l *Logger) Debug(format string, v ...any) { l.log(l.g.Debugf, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.log(l.g.Infof, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.log(l.g.Warnf, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.log(l.g.Errorf, format, v...) }

func (l *Logger) log(fn func(string, ...any), format string, v ...any) {
	if l.prefix == "" {
		fn(format, v...)
		return
	}
	fn(l.prefix+" "+format, v...)
}
