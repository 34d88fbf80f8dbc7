// Package logging adapts zerolog to the core's structured-logging
// interface, keeping call sites decoupled from the concrete logging
// backend.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the simple structured-logging interface the core depends on,
// kept decoupled from zerolog at the call-site boundary.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	With(fields map[string]any) Logger
}

// zerologAdapter implements Logger over a zerolog.Logger.
type zerologAdapter struct {
	z zerolog.Logger
}

// New returns a console-formatted Logger writing to w at the given
// level ("debug", "info", "warn", "error", ...).
func New(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger()
	return zerologAdapter{z: z}
}

// NewJSON returns a newline-delimited JSON Logger, for production-style
// log shipping rather than the console-formatted development output New
// returns.
func NewJSON(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return zerologAdapter{z: z}
}

func (a zerologAdapter) Debug(msg string, fields map[string]any) { a.emit(a.z.Debug(), msg, fields) }
func (a zerologAdapter) Info(msg string, fields map[string]any)  { a.emit(a.z.Info(), msg, fields) }
func (a zerologAdapter) Warn(msg string, fields map[string]any)  { a.emit(a.z.Warn(), msg, fields) }
func (a zerologAdapter) Error(msg string, fields map[string]any) { a.emit(a.z.Error(), msg, fields) }

func (a zerologAdapter) emit(e *zerolog.Event, msg string, fields map[string]any) {
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

// With returns a child Logger carrying fields on every subsequent
// entry, for per-component context.
func (a zerologAdapter) With(fields map[string]any) Logger {
	ctx := a.z.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return zerologAdapter{z: ctx.Logger()}
}

// Nop returns a Logger that discards everything, for callers that don't
// want to wire one up (e.g. unit tests).
func Nop() Logger { return zerologAdapter{z: zerolog.Nop()} }
