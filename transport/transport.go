// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package transport reads packets from a radio or a packet log and sends
// commands to the radio.
//
// A radio is either a serial device (an HGI80 or an evofw3 stick) or a
// ser2net-style socket given as tcp://host:port. Each line the radio
// writes is "RSSI FRAME"; lines starting with "!" or "#" are firmware
// chatter.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/syncx"
)

// Errors returned by [Transport.Send].
var (
	ErrSendingDisabled = errors.New("sending is disabled")
	ErrExpired         = errors.New("command expired")
)

var errPortClosed = errors.New("port closed")

// devMode logs every raw line read from a radio. Releases are built with it
// off.
const devMode = false

// DefaultMinGap is the default minimum time between two writes.
const DefaultMinGap = 50 * time.Millisecond

// Options configures a [Transport].
type Options struct {
	// Inbound rewrites received lines before they are parsed.
	Inbound config.Rewrites
	// Outbound rewrites frames before they are written.
	Outbound config.Rewrites
	// Blocked reports whether packets to or from a device are dropped.
	Blocked func(protocol.Address) bool
	// DisableSending refuses every command.
	DisableSending bool
	// EvofwFlag is written to the radio when it is opened.
	EvofwFlag string
	// MinGap is the minimum time between two writes. Defaults to
	// DefaultMinGap.
	MinGap time.Duration
	// Invalid, if set, is called with every line that isn't a valid packet.
	Invalid func(dtm time.Time, line string, err error)
	// Now returns the receive time of packets. Defaults to time.Now.
	Now func() time.Time
}

// FromConfig returns the options set by c.
func FromConfig(c *config.Config) Options {
	return Options{
		Inbound:        c.Gateway.UseRegex.Inbound,
		Outbound:       c.Gateway.UseRegex.Outbound,
		Blocked:        c.Blocked,
		DisableSending: c.Gateway.DisableSending,
		EvofwFlag:      c.Gateway.EvofwFlag,
	}
}

// Transport is a source of packets that may also send commands.
type Transport struct {
	opts   Options
	r      io.Reader
	w      io.Writer // nil when replaying
	c      io.Closer
	replay bool

	mu      sync.Mutex
	pending *pending

	radio *syncx.Protected[radioInfo]

	queue   sendQueue
	writeMu sync.Mutex
	lastTx  time.Time
}

// radioInfo is what a radio tells about itself.
type radioInfo struct {
	id       protocol.Address // learnt from the echo of a sent command
	firmware string
}

// Open opens a radio: a serial device path, or tcp://host:port.
func Open(ctx context.Context, port string, opts Options) (*Transport, error) {
	if addr, ok := strings.CutPrefix(port, "tcp://"); ok {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return New(conn, opts), nil
	}
	f, err := os.OpenFile(port, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return New(f, opts), nil
}

// New returns a Transport that talks to a radio over rwc.
func New(rwc io.ReadWriteCloser, opts Options) *Transport {
	t := newTransport(opts)
	t.r, t.w, t.c = rwc, rwc, rwc
	return t
}

// Replay returns a Transport that reads a packet log from r. It can't send.
func Replay(r io.Reader, opts Options) *Transport {
	t := newTransport(opts)
	t.r, t.replay = r, true
	if c, ok := r.(io.Closer); ok {
		t.c = c
	}
	return t
}

func newTransport(opts Options) *Transport {
	if opts.MinGap == 0 {
		opts.MinGap = DefaultMinGap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Transport{opts: opts, radio: syncx.Protect(radioInfo{})}
}

// GatewayID returns the id of the radio, once learnt from the echo of a
// sent command.
func (t *Transport) GatewayID() (id protocol.Address) {
	t.radio.ReadAccess(func(r radioInfo) { id = r.id })
	return id
}

// Firmware returns the firmware the radio reported, if any. An HGI80
// doesn't report one.
func (t *Transport) Firmware() (fw string) {
	t.radio.ReadAccess(func(r radioInfo) { fw = r.firmware })
	return fw
}

// CanSend reports whether commands can be sent.
func (t *Transport) CanSend() bool { return t.w != nil && !t.opts.DisableSending }

// Close closes the underlying port or file.
func (t *Transport) Close() error {
	if t.c == nil {
		return nil
	}
	return t.c.Close()
}

// Run reads packets and calls handle for each one until ctx is done, or,
// when replaying, until the end of the log.
func (t *Transport) Run(ctx context.Context, handle func(context.Context, *protocol.Packet)) error {
	if t.c != nil {
		stop := context.AfterFunc(ctx, func() { t.c.Close() })
		defer stop()
	}
	if t.w != nil {
		if t.opts.EvofwFlag != "" {
			if err := t.write(ctx, t.opts.EvofwFlag); err != nil {
				return err
			}
		}
		if err := t.write(ctx, "!V"); err != nil {
			return err
		}
	}

	sc := bufio.NewScanner(t.r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		t.readLine(ctx, sc.Text(), handle)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !t.replay {
		return errPortClosed
	}
	return nil
}

func (t *Transport) readLine(ctx context.Context, line string, handle func(context.Context, *protocol.Packet)) {
	line = strings.Trim(line, "\r\n\x00")
	if devMode {
		logger.Debug(ctx, "raw line", slog.String("line", line))
	}
	var (
		pkt *protocol.Packet
		err error
	)
	if t.replay {
		pkt, err = protocol.ParseLogLine(t.opts.Inbound.Apply(line))
	} else {
		if t.chatter(ctx, line) {
			return
		}
		pkt, err = protocol.ParsePacket(t.opts.Inbound.Apply(line), t.opts.Now())
	}

	switch {
	case errors.Is(err, protocol.ErrNoPacket):
		return
	case err != nil:
		dtm := t.opts.Now()
		if pkt != nil && !pkt.Dtm.IsZero() {
			dtm = pkt.Dtm
		}
		if pkt == nil || !pkt.KnownBad {
			logger.Warn(ctx, "invalid packet", slog.String("line", line), logger.Err(err))
		}
		if t.opts.Invalid != nil {
			t.opts.Invalid(dtm, line, err)
		}
		return
	}

	if t.blocked(pkt) {
		logger.Debug(ctx, "packet dropped by device filter", slog.String("frame", pkt.Frame.String()))
		return
	}
	t.match(pkt)
	handle(ctx, pkt)
}

// chatter handles the lines a radio writes that aren't packets.
func (t *Transport) chatter(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "!") && !strings.HasPrefix(line, "#") {
		return false
	}
	if fw, ok := strings.CutPrefix(line, "# "); ok && strings.HasPrefix(fw, "evofw") {
		t.radio.WriteAccess(func(r *radioInfo) { r.firmware = fw })
		logger.Info(ctx, "radio firmware", slog.String("firmware", fw))
	}
	return true
}

func (t *Transport) blocked(pkt *protocol.Packet) bool {
	if t.opts.Blocked == nil {
		return false
	}
	for _, a := range pkt.Addrs {
		if a.IsDevice() && t.opts.Blocked(a) {
			return true
		}
	}
	return false
}

// write writes a line to the radio, keeping at least MinGap between
// writes.
func (t *Transport) write(ctx context.Context, s string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if wait := t.opts.MinGap - time.Since(t.lastTx); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	_, err := io.WriteString(t.w, t.opts.Outbound.Apply(s)+"\r\n")
	t.lastTx = time.Now()
	if err != nil {
		return fmt.Errorf("writing to radio: %w", err)
	}
	return nil
}
