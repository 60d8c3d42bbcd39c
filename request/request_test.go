// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package request

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/ramses/testutil"
)

type sendResult struct {
	Frame string `json:"frame"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad content type", http.StatusUnsupportedMediaType)
			return
		}
		var req struct {
			Cmd string `json:"cmd"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(req.Cmd, "XX") {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"status": "error", "error": "bad request: invalid verb"}`)
			return
		}
		io.WriteString(w, `{"frame": "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5"}`)
	})
	mux.HandleFunc("GET /api/agent", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"user_agent": r.UserAgent(),
			"token":      r.Header.Get("X-Token"),
		})
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"frame":`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestMake(t *testing.T) {
	srv := newServer(t)

	res, err := Make[sendResult](context.Background(), Params{
		Method: http.MethodPost,
		URL:    srv.URL + "/api/send",
		Body:   map[string]string{"cmd": "RQ 01:145038 1F09 00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, res.Frame, "RP --- 01:145038 18:000730 --:------ 1F09 003 0004B5")
}

func TestMakeHeaders(t *testing.T) {
	srv := newServer(t)

	res, err := Make[map[string]string](context.Background(), Params{
		Method:     http.MethodGet,
		URL:        srv.URL + "/api/agent",
		Headers:    map[string]string{"X-Token": "secret"},
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, res["token"], "secret")
	if !strings.Contains(res["user_agent"], "/") {
		t.Errorf("user agent %q has no version", res["user_agent"])
	}
}

func TestMakeErrors(t *testing.T) {
	srv := newServer(t)

	cases := map[string]struct {
		params      Params
		wantStatus  int
		wantMessage string
		wantInErr   string
	}{
		"error response": {
			params: Params{
				Method: http.MethodPost,
				URL:    srv.URL + "/api/send",
				Body:   map[string]string{"cmd": "XX 01:145038 1F09 00"},
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "bad request: invalid verb",
			wantInErr:   "400 Bad Request: bad request: invalid verb",
		},
		"plain error": {
			params:     Params{Method: http.MethodGet, URL: srv.URL + "/nowhere"},
			wantStatus: http.StatusNotFound,
			wantInErr:  "404 Not Found",
		},
		"broken response": {
			params:    Params{Method: http.MethodGet, URL: srv.URL + "/broken"},
			wantInErr: "decoding response",
		},
		"bad body": {
			params:    Params{Method: http.MethodPost, URL: srv.URL, Body: make(chan int)},
			wantInErr: "encoding body",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Make[sendResult](context.Background(), tc.params)
			if err == nil {
				t.Fatal("want an error")
			}
			testutil.AssertContains(t, err.Error(), tc.wantInErr)

			var se *StatusError
			if tc.wantStatus == 0 {
				if errors.As(err, &se) {
					t.Fatalf("unexpected status error %v", se)
				}
				return
			}
			if !errors.As(err, &se) {
				t.Fatalf("want a *StatusError, got %T", err)
			}
			testutil.AssertEqual(t, se.StatusCode, tc.wantStatus)
			testutil.AssertEqual(t, se.Message, tc.wantMessage)
		})
	}
}
