// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/ramses/config"
	"go.astrophena.name/ramses/gateway"
	"go.astrophena.name/ramses/protocol"
	"go.astrophena.name/ramses/testutil"
	"go.astrophena.name/ramses/web"
)

var testTime = time.Date(2021, 6, 15, 10, 30, 0, 0, time.Local)

const packets = `2021-06-15T10:30:00.000000 045  I --- 01:145038 --:------ 01:145038 1F09 003 FF04B0
2021-06-15T10:30:00.100000 045  I --- 01:145038 --:------ 01:145038 2309 006 0007D0010866
2021-06-15T10:30:00.200000 045  I --- 01:145038 --:------ 01:145038 30C9 009 0007D00107E4020BB8
2021-06-15T10:30:00.300000 051  I --- 02:000921 --:------ 02:000921 3150 004 0064015A
`

// fakeRadio delivers packets, then answers commands from replies, keyed by
// frame.
type fakeRadio struct {
	pkts    []*protocol.Packet
	replies map[string]string
	err     error
}

func (f *fakeRadio) Run(ctx context.Context, handle func(context.Context, *protocol.Packet)) error {
	for _, pkt := range f.pkts {
		handle(ctx, pkt)
	}
	return nil
}

func (f *fakeRadio) Send(_ context.Context, cmd *protocol.Command) (*protocol.Packet, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cmd.Verb == protocol.I {
		return &protocol.Packet{Frame: cmd.Frame, Dtm: testTime, RSSI: "000"}, nil
	}
	reply, ok := f.replies[cmd.String()]
	if !ok {
		return nil, gateway.ErrExpired
	}
	return protocol.ParsePacket("045 "+reply, testTime)
}

func newRadio(t *testing.T) *fakeRadio {
	t.Helper()
	f := &fakeRadio{replies: map[string]string{
		"RQ --- 18:000730 01:145038 --:------ 1F09 001 00": "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5",
	}}
	for line := range strings.Lines(packets) {
		pkt, err := protocol.ParseLogLine(line)
		if err != nil {
			t.Fatal(err)
		}
		f.pkts = append(f.pkts, pkt)
	}
	return f
}

func newTestServer(t *testing.T, radio *fakeRadio, start bool) (*gateway.Gateway, *Handler, *web.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Gateway.DisableDiscovery = true
	g := gateway.New(cfg, radio, gateway.Options{Now: func() time.Time { return testTime }})
	if start {
		if err := g.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	h := New(g)
	s := &web.Server{Mux: http.NewServeMux(), CSP: web.NewCSPMux()}
	h.Register(s.Mux, s.CSP)
	return g, h, s
}

func do(s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, r)
	return w
}

func TestSnapshots(t *testing.T) {
	g, _, s := newTestServer(t, newRadio(t), true)

	cases := map[string]struct {
		path string
		want any
	}{
		"schema":     {path: "/api/schema", want: g.Schema()},
		"params":     {path: "/api/params", want: g.Params()},
		"status":     {path: "/api/status", want: g.Status()},
		"known list": {path: "/api/known_list", want: g.KnownList()},
		"traits":     {path: "/api/traits", want: g.Traits()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(s, http.MethodGet, tc.path, "")
			testutil.AssertEqual(t, w.Code, http.StatusOK)
			testutil.AssertEqual(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'; frame-ancestors 'none'")
			want, err := json.MarshalIndent(tc.want, "", "  ")
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, w.Body.String(), string(want)+"\n")
		})
	}
}

func TestDevice(t *testing.T) {
	_, _, s := newTestServer(t, newRadio(t), true)

	cases := map[string]struct {
		id         string
		wantStatus int
		wantInBody string
	}{
		"controller": {
			id:         "01:145038",
			wantStatus: http.StatusOK,
			wantInBody: `"class": "CTL"`,
		},
		"unknown": {
			id:         "04:999999",
			wantStatus: http.StatusNotFound,
			wantInBody: "unknown device",
		},
		"bad id": {
			id:         "01:xyz",
			wantStatus: http.StatusBadRequest,
			wantInBody: "bad device id",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(s, http.MethodGet, "/api/devices/"+tc.id, "")
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			testutil.AssertContains(t, w.Body.String(), tc.wantInBody)
		})
	}

	w := do(s, http.MethodGet, "/api/devices/01:145038", "")
	resp := testutil.UnmarshalJSON[struct {
		ID       string            `json:"id"`
		Codes    []string          `json:"codes"`
		Messages []json.RawMessage `json:"messages"`
	}](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.ID, "01:145038")
	testutil.AssertEqual(t, resp.Codes, []string{"I|1F09", "I|2309", "I|30C9"})
	testutil.AssertEqual(t, len(resp.Messages), 3)
}

func TestSend(t *testing.T) {
	cases := map[string]struct {
		radio      func(*fakeRadio)
		body       string
		wantStatus int
		wantInBody string
	}{
		"answered": {
			body:       `{"cmd": "RQ 01:145038 1F09 00"}`,
			wantStatus: http.StatusOK,
			wantInBody: `"code": "1F09"`,
		},
		"no cmd": {
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "cmd is required",
		},
		"bad cmd": {
			body:       `{"cmd": "XX 01:145038 1F09 00"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "validation failed",
		},
		"unanswered": {
			body:       `{"cmd": "RQ 01:145038 2E04 FF"}`,
			wantStatus: http.StatusGatewayTimeout,
			wantInBody: `"status": "error"`,
		},
		"sending disabled": {
			radio:      func(f *fakeRadio) { f.err = gateway.ErrSendingDisabled },
			body:       `{"cmd": "RQ 01:145038 1F09 00"}`,
			wantStatus: http.StatusForbidden,
			wantInBody: `"status": "error"`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			radio := newRadio(t)
			if tc.radio != nil {
				tc.radio(radio)
			}
			_, _, s := newTestServer(t, radio, false)
			w := do(s, http.MethodPost, "/api/send", tc.body)
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			testutil.AssertContains(t, w.Body.String(), tc.wantInBody)
		})
	}
}

func TestStatusPage(t *testing.T) {
	_, _, s := newTestServer(t, newRadio(t), true)
	w := do(s, http.MethodGet, "/", "")
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	body := w.Body.String()
	for _, want := range []string{
		`<a href="/api/devices/01:145038"><code>01:145038</code></a>`,
		"<td>CTL</td>",
		"<code>02:000921</code>",
		"4 packets, 4 messages, 2 devices.",
	} {
		testutil.AssertContains(t, body, want)
	}

	// Other paths aren't the status page.
	testutil.AssertEqual(t, do(s, http.MethodGet, "/nope", "").Code, http.StatusNotFound)
}

func TestHealth(t *testing.T) {
	_, _, s := newTestServer(t, newRadio(t), true)
	w := do(s, http.MethodGet, "/health", "")
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	resp := testutil.UnmarshalJSON[web.HealthResponse](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.Checks["gateway"], web.CheckResult{Status: "2 devices, 4 msgs", OK: true})
}

func TestEvents(t *testing.T) {
	g, h, s := newTestServer(t, newRadio(t), false)
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Stream(ctx)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	testutil.AssertEqual(t, resp.Header.Get("Content-Type"), "text/event-stream")

	for h.events.ClientCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if err := g.Start(ctx); err != nil {
		t.Fatal(err)
	}

	sc := bufio.NewScanner(resp.Body)
	var events, frames []string
	for sc.Scan() && len(frames) < 4 {
		line := sc.Text()
		if ev, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, ev)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			msg := testutil.UnmarshalJSON[struct {
				Frame string `json:"frame"`
			}](t, []byte(data))
			frames = append(frames, msg.Frame)
		}
	}
	testutil.AssertEqual(t, events, []string{"message", "message", "message", "message"})
	testutil.AssertEqual(t, frames[3], " I --- 02:000921 --:------ 02:000921 3150 004 0064015A")

	cancel()
	<-done
}
