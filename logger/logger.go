// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger carries an [slog] logger in a context.
//
// Libraries log with [Debug], [Info], [Warn] and [Error], which go to the
// logger of their context. Without one, messages are dropped.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Logf is a printf-style logging function.
type Logf func(format string, args ...any)

// Write lets a Logf back a [log.Logger].
func (f Logf) Write(p []byte) (int, error) {
	f("%s", p)
	return len(p), nil
}

// Logger is an [slog.Logger] whose handlers can be attached and detached
// while it's in use. Handlers created for it should follow Level.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar

	fanout *fanout
}

// New returns a Logger with no handlers. If level is nil, the Logger gets
// its own, set to [slog.LevelInfo].
func New(level *slog.LevelVar) *Logger {
	if level == nil {
		level = new(slog.LevelVar)
	}
	f := new(fanout)
	return &Logger{Logger: slog.New(f), Level: level, fanout: f}
}

// Attach starts sending records to h.
func (l *Logger) Attach(h slog.Handler) { l.fanout.attach(h) }

// Detach stops sending records to h.
func (l *Logger) Detach(h slog.Handler) { l.fanout.detach(h) }

type ctxKey struct{}

var discard = func() *Logger {
	l := New(nil)
	l.Attach(slog.NewTextHandler(io.Discard, nil))
	return l
}()

// Put returns a copy of ctx that carries l.
func Put(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the Logger of ctx, or one that drops everything.
func Get(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return discard
}

// IsDefault reports whether l is the Logger [Get] falls back to.
func IsDefault(l *Logger) bool { return l == discard }

// LevelVar returns the level of the Logger of ctx.
func LevelVar(ctx context.Context) *slog.LevelVar { return Get(ctx).Level }

// Err returns an attribute holding err under the "err" key.
func Err(err error) slog.Attr { return slog.Any("err", err) }

// Printf returns a [Logf] that logs at level to the Logger of ctx.
func Printf(ctx context.Context, level slog.Level) Logf {
	return func(format string, args ...any) {
		Get(ctx).LogAttrs(ctx, level, fmt.Sprintf(format, args...))
	}
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
