// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sse streams Server-Sent Events.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"go.astrophena.name/ramses/syncx"
	"go.astrophena.name/ramses/web"
)

// clientBuf is how many events a client may fall behind before it misses
// some.
const clientBuf = 16

// Streamer broadcasts events to the clients connected to it. A client that
// doesn't keep up misses events. The zero value is ready to use.
type Streamer struct {
	clients syncx.Fanout[string]
	lastID  atomic.Uint64
}

// NewStreamer returns a new Streamer.
func NewStreamer() *Streamer { return new(Streamer) }

// ErrStreamingUnsupported is returned when the connection can't be flushed.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// ServeHTTP streams events until the client goes away.
func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		web.RespondError(w, r, ErrStreamingUnsupported)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, cancel := s.clients.Subscribe(clientBuf)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			io.WriteString(w, ev)
			flusher.Flush()
		}
	}
}

// Send broadcasts data as a "message" event.
func (s *Streamer) Send(data string) {
	s.SendEvent("message", data)
}

// SendEvent broadcasts data as an event named event. Each event gets the
// next id, so clients can tell when they missed some.
func (s *Streamer) SendEvent(event, data string) {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\n", s.lastID.Add(1))
	fmt.Fprintf(&b, "event: %s\n", event)
	for line := range strings.SplitSeq(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	s.clients.Publish(b.String())
}

// SendJSON broadcasts v, encoded as JSON, as an event named event.
func (s *Streamer) SendJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: %w", err)
	}
	s.SendEvent(event, string(data))
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Streamer) ClientCount() int { return s.clients.Len() }
