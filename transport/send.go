// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/ramses/logger"
	"go.astrophena.name/ramses/protocol"
)

// pending is a command waiting for its echo and response.
type pending struct {
	cmd    *protocol.Command
	echoed bool
	echo   chan *protocol.Packet
	reply  chan *protocol.Packet
}

// Send writes cmd to the radio and waits for its echo, then for its
// response if the command expects one. The echo is returned for commands
// that don't. Each attempt waits cmd.QoS.Timeout for each of the two, and
// a command is resent up to cmd.QoS.Retries times before [ErrExpired] is
// returned.
//
// Commands are sent one at a time, in order of priority.
func (t *Transport) Send(ctx context.Context, cmd *protocol.Command) (*protocol.Packet, error) {
	if !t.CanSend() {
		return nil, fmt.Errorf("%w: %s", ErrSendingDisabled, cmd.Frame)
	}
	release, err := t.queue.acquire(ctx, cmd.QoS.Priority)
	if err != nil {
		return nil, err
	}
	defer release()

	timeout := cmd.QoS.Timeout
	if timeout <= 0 {
		timeout = protocol.DefaultTimeout
	}
	p := &pending{
		cmd:   cmd,
		echo:  make(chan *protocol.Packet, 1),
		reply: make(chan *protocol.Packet, 1),
	}
	defer func() {
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
	}()

	for attempt := 0; attempt <= cmd.QoS.Retries; attempt++ {
		t.mu.Lock()
		p.echoed = false
		t.pending = p
		t.mu.Unlock()

		if err := t.write(ctx, t.outFrame(cmd.Frame)); err != nil {
			return nil, err
		}
		pkt, err := t.await(ctx, p, timeout)
		if err == nil {
			return pkt, nil
		}
		if !errors.Is(err, ErrExpired) {
			return nil, err
		}
		logger.Debug(ctx, "no response", slog.String("frame", cmd.Frame.String()), slog.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("%w: %s", ErrExpired, cmd.Frame)
}

// outFrame returns f as it is written to the radio: once the gateway id is
// known, it replaces [protocol.HGIDevice].
func (t *Transport) outFrame(f *protocol.Frame) string {
	s := f.String()
	id := t.GatewayID()
	if id == "" || id == protocol.HGIDevice {
		return s
	}
	// Payloads are hex, so only address fields can match.
	return strings.ReplaceAll(s, string(protocol.HGIDevice), string(id))
}

func (t *Transport) await(ctx context.Context, p *pending, timeout time.Duration) (*protocol.Packet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var echo *protocol.Packet
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrExpired
	case echo = <-p.echo:
	}
	if p.cmd.RxHdr() == "" {
		return echo, nil
	}

	timer.Reset(timeout)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrExpired
	case pkt := <-p.reply:
		return pkt, nil
	}
}

// match passes pkt to the pending command if it is its echo or response.
func (t *Transport) match(pkt *protocol.Packet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	if p == nil {
		return
	}
	if !p.echoed {
		id, ok := isEcho(p.cmd.Frame, pkt.Frame)
		if !ok {
			return
		}
		if id != "" {
			t.radio.WriteAccess(func(r *radioInfo) {
				if r.id == "" {
					r.id = id
				}
			})
		}
		p.echoed = true
		select {
		case p.echo <- pkt:
		default:
		}
		return
	}
	if hdr := p.cmd.RxHdr(); hdr != "" && pkt.Hdr() == hdr {
		select {
		case p.reply <- pkt:
		default:
		}
	}
}

// isEcho reports whether got is sent as echoed by the radio. The radio
// puts its own id where sent has [protocol.HGIDevice]; that id is
// returned.
func isEcho(sent, got *protocol.Frame) (protocol.Address, bool) {
	if sent.Verb != got.Verb || sent.Code != got.Code || sent.Payload != got.Payload {
		return "", false
	}
	var id protocol.Address
	for i, a := range sent.Addrs {
		switch b := got.Addrs[i]; {
		case a == b:
			if a == protocol.HGIDevice {
				id = a
			}
		case a == protocol.HGIDevice && b.Type() == "18":
			id = b
		default:
			return "", false
		}
	}
	return id, true
}

// sendQueue lets one sender at a time through, highest priority first.
type sendQueue struct {
	mu      sync.Mutex
	busy    bool
	waiters []*waiter
}

type waiter struct {
	prio  protocol.Priority
	ready chan struct{}
}

func (q *sendQueue) acquire(ctx context.Context, prio protocol.Priority) (release func(), err error) {
	q.mu.Lock()
	if !q.busy {
		q.busy = true
		q.mu.Unlock()
		return q.release, nil
	}
	w := &waiter{prio: prio, ready: make(chan struct{})}
	i := len(q.waiters)
	for i > 0 && q.waiters[i-1].prio < prio {
		i--
	}
	q.waiters = slices.Insert(q.waiters, i, w)
	q.mu.Unlock()

	select {
	case <-w.ready:
		return q.release, nil
	case <-ctx.Done():
		q.mu.Lock()
		if i := slices.Index(q.waiters, w); i >= 0 {
			q.waiters = slices.Delete(q.waiters, i, i+1)
			q.mu.Unlock()
			return nil, ctx.Err()
		}
		q.mu.Unlock()
		// Our turn came as ctx was canceled: pass it on.
		q.release()
		return nil, ctx.Err()
	}
}

func (q *sendQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiters) == 0 {
		q.busy = false
		return
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(w.ready)
}
