// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package api serves the state of a gateway over HTTP, and lets clients send
// it commands.
//
// Routes:
//
//	GET  /                   status page
//	GET  /api/schema         schema snapshot
//	GET  /api/params         params snapshot
//	GET  /api/status         status snapshot
//	GET  /api/known_list     devices seen, as a known list
//	GET  /api/traits         traits of every device
//	GET  /api/devices/{id}   traits and latest messages of a device
//	POST /api/send           {"cmd": "RQ 01:145038 1F09 00"}
//	GET  /events             messages as server-sent events
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/web"
	"go.astrophena.name/ramses/web/sse"
)

// Handler serves a gateway.
type Handler struct {
	gw     *gateway.Gateway
	events *sse.Streamer
	msgs   <-chan *protocol.Message
	cancel func()
}

// New returns a Handler serving g. It subscribes to the messages of g, which
// [Handler.Stream] sends on.
func New(g *gateway.Gateway) *Handler {
	h := &Handler{gw: g, events: sse.NewStreamer()}
	h.msgs, h.cancel = g.Subscribe(64)
	return h
}

var apiPolicy = web.CSP{
	DefaultSrc:     []string{web.CSPNone},
	FrameAncestors: []string{web.CSPNone},
}

// Register adds the routes of h to mux and their policies to csp, if not
// nil.
func (h *Handler) Register(mux *http.ServeMux, csp *web.CSPMux) {
	mux.Handle("GET /{$}", h.statusPage())
	mux.HandleFunc("GET /api/schema", snapshot(h.gw.Schema))
	mux.HandleFunc("GET /api/params", snapshot(h.gw.Params))
	mux.HandleFunc("GET /api/status", snapshot(h.gw.Status))
	mux.HandleFunc("GET /api/known_list", snapshot(h.gw.KnownList))
	mux.HandleFunc("GET /api/traits", snapshot(h.gw.Traits))
	mux.HandleFunc("GET /api/devices/{id}", h.device)
	mux.Handle("POST /api/send", web.HandleJSON(h.send))
	mux.Handle("GET /events", h.events)

	web.Health(mux).RegisterFunc("gateway", func() (string, bool) {
		st := h.gw.Stats()
		return fmt.Sprintf("%d devices, %d msgs", st.Devices, st.Messages), true
	})

	if csp != nil {
		csp.Handle("/api/", apiPolicy)
	}
}

// Stream sends every message of the gateway to the clients of /events
// until ctx is done. It unsubscribes from the gateway when it returns.
func (h *Handler) Stream(ctx context.Context) {
	defer h.cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-h.msgs:
			if !ok {
				return
			}
			if h.events.ClientCount() == 0 {
				continue
			}
			h.events.SendJSON("message", msg)
		}
	}
}

func snapshot[T any](f func() T) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		web.RespondJSON(w, f())
	}
}

type deviceResponse struct {
	ID protocol.Address `json:"id"`
	gateway.DeviceTraits
	Messages []*protocol.Message `json:"messages"`
}

func (h *Handler) device(w http.ResponseWriter, r *http.Request) {
	id, err := protocol.ParseAddress(r.PathValue("id"))
	if err != nil {
		web.RespondJSONError(w, r, fmt.Errorf("%w: %v", web.ErrBadRequest, err))
		return
	}
	traits, err := h.gw.DeviceTraits(id)
	if errors.Is(err, gateway.ErrUnknownDevice) {
		web.RespondJSONError(w, r, fmt.Errorf("%w: %v", web.ErrNotFound, err))
		return
	}
	if err != nil {
		web.RespondJSONError(w, r, err)
		return
	}
	resp := deviceResponse{ID: id, DeviceTraits: traits, Messages: []*protocol.Message{}}
	if d, ok := h.gw.Device(id); ok {
		resp.Messages = append(resp.Messages, d.Messages()...)
	}
	web.RespondJSON(w, resp)
}

type sendRequest struct {
	Cmd string `json:"cmd"`
}

func (r sendRequest) Validate() error {
	if r.Cmd == "" {
		return errors.New("cmd is required")
	}
	_, err := protocol.FromCLI(r.Cmd)
	return err
}

var errGatewayTimeout = web.StatusErr(http.StatusGatewayTimeout)

func (h *Handler) send(r *http.Request, req sendRequest) (*protocol.Message, error) {
	msg, err := h.gw.ExecCmd(r.Context(), req.Cmd)
	switch {
	case err == nil:
		return msg, nil
	case errors.Is(err, gateway.ErrSendingDisabled):
		return nil, fmt.Errorf("%w: %v", web.ErrForbidden, err)
	case errors.Is(err, gateway.ErrExpired):
		return nil, fmt.Errorf("%w: %v", errGatewayTimeout, err)
	case errors.Is(err, protocol.ErrPacketInvalid):
		return nil, fmt.Errorf("%w: %v", web.ErrBadRequest, err)
	}
	return nil, err
}
