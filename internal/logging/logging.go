// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging wraps charmbracelet/log with the component-tagged
// call shape used throughout the guard: logging.Default().WithComponent(name)
// returns a Logger scoped to that subsystem.
package logging

import (
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a thin wrapper around a charmbracelet/log logger that keeps
// the guard's call sites decoupled from the backing library's import
// path.
type Logger struct {
	l *charmlog.Logger
	w io.Writer
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide Logger, writing to stderr with
// timestamps enabled.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(os.Stderr)
	})
	return defaultLogger
}

// New builds a Logger writing to w.
func New(w io.Writer) *Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})
	return &Logger{l: l, w: w}
}

// WithComponent returns a child Logger tagging every subsequent line
// with component=name.
func (lg *Logger) WithComponent(name string) *Logger {
	return &Logger{l: lg.l.With("component", name), w: lg.w}
}

// With returns a child Logger with additional key/value pairs attached
// to every subsequent line.
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...), w: lg.w}
}

func (lg *Logger) Debug(msg string, keyvals ...any) { lg.l.Debug(msg, keyvals...) }
func (lg *Logger) Info(msg string, keyvals ...any)  { lg.l.Info(msg, keyvals...) }
func (lg *Logger) Warn(msg string, keyvals ...any)  { lg.l.Warn(msg, keyvals...) }
func (lg *Logger) Error(msg string, keyvals ...any) { lg.l.Error(msg, keyvals...) }

// AddWriter fans out future log lines to an additional writer (e.g. a
// syslog connection) alongside the logger's current output.
func (lg *Logger) AddWriter(w io.Writer) {
	lg.w = io.MultiWriter(lg.w, w)
	lg.l.SetOutput(lg.w)
}
