// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package packetlog writes packet logs: one line per packet, in the format
// read back by [protocol.ParseLogLine].
//
//	2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0
//
// Invalid packets are logged too, followed by " * " and the error.
package packetlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
)

// Attribute keys read by [Handler].
const (
	KeyDtm     = "dtm"
	KeyRSSI    = "rssi"
	KeyFrame   = "frame"
	KeyComment = "comment"
	KeyErr     = "err"
)

// Handler is a [slog.Handler] that formats records as packet log lines.
// Only Info and Warn records are written.
type Handler struct {
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
}

// NewHandler returns a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{mu: new(sync.Mutex), w: w}
}

// Enabled implements [slog.Handler].
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level == slog.LevelInfo || level == slog.LevelWarn
}

// Handle implements [slog.Handler].
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var (
		dtm                         = r.Time
		rssi, frame, comment, errAt string
	)
	read := func(a slog.Attr) bool {
		switch a.Key {
		case KeyDtm:
			if t, ok := a.Value.Any().(time.Time); ok {
				dtm = t
			}
		case KeyRSSI:
			rssi = a.Value.String()
		case KeyFrame:
			frame = a.Value.String()
		case KeyComment:
			comment = a.Value.String()
		case KeyErr:
			errAt = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		read(a)
	}
	r.Attrs(read)

	line := dtm.Format(protocol.DtmFormat)
	if rssi != "" {
		line += " " + rssi
	}
	line += " " + frame
	if r.Message != "" {
		line += " < " + r.Message
	}
	if errAt != "" {
		line += " * " + errAt
	}
	if comment != "" {
		line += " # " + comment
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

// WithAttrs implements [slog.Handler].
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{mu: h.mu, w: h.w, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

// WithGroup implements [slog.Handler]. Groups are ignored.
func (h *Handler) WithGroup(string) slog.Handler { return h }

// Packet logs pkt to l.
func Packet(ctx context.Context, l *slog.Logger, pkt *protocol.Packet) {
	attrs := []slog.Attr{
		slog.Time(KeyDtm, pkt.Dtm),
		slog.String(KeyRSSI, pkt.RSSI),
		slog.String(KeyFrame, pkt.Frame.String()),
	}
	if pkt.Comment != "" {
		attrs = append(attrs, slog.String(KeyComment, pkt.Comment))
	}
	l.LogAttrs(ctx, slog.LevelInfo, "", attrs...)
}

// Invalid logs a line that isn't a valid packet to l.
func Invalid(ctx context.Context, l *slog.Logger, dtm time.Time, line string, err error) {
	l.LogAttrs(ctx, slog.LevelWarn, "",
		slog.Time(KeyDtm, dtm),
		slog.String(KeyFrame, line),
		slog.String(KeyErr, err.Error()),
	)
}

// Log is a packet log file.
type Log struct {
	*slog.Logger

	lj   *lumberjack.Logger
	stop chan struct{}
	done chan struct{}

	mu       sync.Mutex
	size     int64 // of the current file
	maxBytes int64
}

// Open opens the packet log configured by c.
//
// With RotateBytes set, the file is rotated before a line would take it to
// that size, and RotateBackups (2 by default) old files are kept.
// Otherwise, with RotateBackups set, it is rotated at midnight. Rotation
// failures are logged to the logger in ctx.
func Open(ctx context.Context, c config.PacketLog) (*Log, error) {
	if c.FileName == "" {
		return nil, fmt.Errorf("packetlog: no file name")
	}
	l := &Log{
		lj: &lumberjack.Logger{
			Filename:   c.FileName,
			MaxSize:    math.MaxInt32, // rotation is ours
			MaxBackups: c.RotateBackups,
			LocalTime:  true,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.Logger = slog.New(NewHandler(l))

	midnight := false
	switch {
	case c.RotateBytes > 0:
		l.maxBytes = c.RotateBytes
		if l.lj.MaxBackups == 0 {
			l.lj.MaxBackups = 2
		}
		// Lines are appended to an existing file.
		if fi, err := os.Stat(c.FileName); err == nil {
			l.size = fi.Size()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("packetlog: %w", err)
		}
	case c.RotateBackups > 0:
		midnight = true
	}

	if midnight {
		go l.rotateAtMidnight(ctx)
	} else {
		close(l.done)
	}
	return l, nil
}

// Write implements [io.Writer].
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxBytes > 0 && l.size > 0 && l.size+int64(len(p)) >= l.maxBytes {
		if err := l.lj.Rotate(); err != nil {
			return 0, err
		}
		l.size = 0
	}
	n, err := l.lj.Write(p)
	l.size += int64(n)
	return n, err
}

func (l *Log) rotateAtMidnight(ctx context.Context) {
	defer close(l.done)
	for {
		timer := time.NewTimer(time.Until(nextMidnight(time.Now())))
		select {
		case <-l.stop:
			timer.Stop()
			return
		case <-timer.C:
			l.rotate(ctx)
		}
	}
}

func (l *Log) rotate(ctx context.Context) {
	if err := l.Rotate(); err != nil {
		logger.Error(ctx, "rotating packet log", slog.String("file", l.lj.Filename), logger.Err(err))
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// Rotate closes the current file and starts a new one.
func (l *Log) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.size = 0
	return l.lj.Rotate()
}

// Close stops rotation and closes the file.
func (l *Log) Close() error {
	close(l.stop)
	<-l.done
	return l.lj.Close()
}
