// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/ramses/testutil"
)

type event struct {
	id, name, data string
}

// readEvent reads the next event from r. Data lines are joined with
// newlines, as a browser does.
func readEvent(t *testing.T, r *bufio.Reader) event {
	t.Helper()
	var (
		ev   event
		data []string
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			ev.data = strings.Join(data, "\n")
			return ev
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		switch key {
		case "id":
			ev.id = value
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		}
	}
}

// connect opens a stream and waits until s sees want clients.
func connect(t *testing.T, s *Streamer, url string, want int) *bufio.Reader {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	waitClients(t, s, want)
	return bufio.NewReader(res.Body)
}

func waitClients(t *testing.T, s *Streamer, want int) {
	t.Helper()
	for range 40 {
		if s.ClientCount() == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("got %d clients, want %d", s.ClientCount(), want)
}

func TestHeaders(t *testing.T) {
	s := NewStreamer()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	res := w.Result()
	testutil.AssertEqual(t, res.Header.Get("Content-Type"), "text/event-stream")
	testutil.AssertEqual(t, res.Header.Get("Cache-Control"), "no-cache")
	testutil.AssertEqual(t, s.ClientCount(), 0)
}

func TestSendEvent(t *testing.T) {
	cases := map[string]struct {
		send func(*Streamer)
		want event
	}{
		"message": {
			send: func(s *Streamer) { s.Send("RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5") },
			want: event{id: "1", name: "message", data: "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5"},
		},
		"multiline": {
			send: func(s *Streamer) { s.SendEvent("log", "first\nsecond") },
			want: event{id: "1", name: "log", data: "first\nsecond"},
		},
		"json": {
			send: func(s *Streamer) {
				if err := s.SendJSON("packet", map[string]string{"code": "30C9"}); err != nil {
					t.Error(err)
				}
			},
			want: event{id: "1", name: "packet", data: `{"code":"30C9"}`},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewStreamer()
			srv := httptest.NewServer(s)
			t.Cleanup(srv.Close)

			r := connect(t, s, srv.URL, 1)
			tc.send(s)
			testutil.AssertEqual(t, readEvent(t, r), tc.want)
		})
	}
}

func TestSendJSONError(t *testing.T) {
	s := NewStreamer()
	if err := s.SendJSON("bad", make(chan int)); err == nil {
		t.Fatal("want an error for a value JSON can't encode")
	}
}

func TestBroadcast(t *testing.T) {
	s := NewStreamer()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	const clients = 3
	readers := make([]*bufio.Reader, clients)
	for i := range clients {
		readers[i] = connect(t, s, srv.URL, i+1)
	}

	s.Send("one")
	s.Send("two")

	var wg sync.WaitGroup
	for _, r := range readers {
		wg.Go(func() {
			first, second := readEvent(t, r), readEvent(t, r)
			if first.data != "one" || second.data != "two" {
				t.Errorf("got %q then %q", first.data, second.data)
			}
			if first.id != "1" || second.id != "2" {
				t.Errorf("got ids %q then %q", first.id, second.id)
			}
		})
	}
	wg.Wait()
}

func TestDisconnect(t *testing.T) {
	s := NewStreamer()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	waitClients(t, s, 1)

	cancel()
	res.Body.Close()
	waitClients(t, s, 0)
}
