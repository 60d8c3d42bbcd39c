// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

// fanout sends records to every attached handler. The list is replaced on
// change, so logging takes no lock.
type fanout struct {
	mu       sync.Mutex // serializes changes
	handlers atomic.Pointer[[]slog.Handler]
}

func (f *fanout) list() []slog.Handler {
	if p := f.handlers.Load(); p != nil {
		return *p
	}
	return nil
}

func (f *fanout) attach(h slog.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hs := append(slices.Clone(f.list()), h)
	f.handlers.Store(&hs)
}

func (f *fanout) detach(h slog.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hs := slices.DeleteFunc(slices.Clone(f.list()), func(x slog.Handler) bool { return x == h })
	f.handlers.Store(&hs)
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f.list(), func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f.list() {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *fanout) derive(fn func(slog.Handler) slog.Handler) *fanout {
	hs := f.list()
	derived := make([]slog.Handler, len(hs))
	for i, h := range hs {
		derived[i] = fn(h)
	}
	d := new(fanout)
	d.handlers.Store(&derived)
	return d
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// ConsoleOptions configures [NewConsole].
type ConsoleOptions struct {
	// NoColor turns off colors, for output that isn't a terminal.
	NoColor bool
	// TimeFormat defaults to [time.TimeOnly].
	TimeFormat string
}

// NewConsole returns a handler that writes records to stdout, or to stderr
// from [slog.LevelWarn] up, formatted by [tint] at the level of l.
func NewConsole(l *Logger, stdout, stderr io.Writer, opts ConsoleOptions) slog.Handler {
	if opts.TimeFormat == "" {
		opts.TimeFormat = time.TimeOnly
	}
	tinted := func(w io.Writer) slog.Handler {
		return tint.NewHandler(w, &tint.Options{
			Level:      l.Level,
			TimeFormat: opts.TimeFormat,
			NoColor:    opts.NoColor,
		})
	}
	return &split{below: tinted(stdout), above: tinted(stderr), at: slog.LevelWarn}
}

// split sends records under level at to below, and the rest to above.
type split struct {
	below, above slog.Handler
	at           slog.Level
}

func (s *split) handler(level slog.Level) slog.Handler {
	if level < s.at {
		return s.below
	}
	return s.above
}

func (s *split) Enabled(ctx context.Context, level slog.Level) bool {
	return s.handler(level).Enabled(ctx, level)
}

func (s *split) Handle(ctx context.Context, r slog.Record) error {
	return s.handler(r.Level).Handle(ctx, r)
}

func (s *split) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &split{below: s.below.WithAttrs(attrs), above: s.above.WithAttrs(attrs), at: s.at}
}

func (s *split) WithGroup(name string) slog.Handler {
	return &split{below: s.below.WithGroup(name), above: s.above.WithGroup(name), at: s.at}
}
