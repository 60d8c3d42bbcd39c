// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/ramses/testutil"
)

func TestRespondError(t *testing.T) {
	secret := errors.New("serial port closed")
	cases := map[string]struct {
		err        error
		trusted    bool
		json       bool
		wantStatus int
		wantBody   string
		dontWant   string
	}{
		"not found": {
			err:        fmt.Errorf("device %w", ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   "<h1>404 Not Found</h1>",
		},
		"internal hidden": {
			err:        secret,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "500 Internal Server Error",
			dontWant:   "serial port closed",
		},
		"internal trusted": {
			err:        secret,
			trusted:    true,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<pre class="error">serial port closed</pre>`,
		},
		"escaped": {
			err:        fmt.Errorf("%w: <script>", ErrBadRequest),
			trusted:    true,
			wantStatus: http.StatusBadRequest,
			wantBody:   "&lt;script&gt;",
			dontWant:   "<script>",
		},
		"json": {
			err:        fmt.Errorf("%w: no such zone", ErrBadRequest),
			json:       true,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error": "bad request: no such zone"`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.trusted {
				r = TrustRequest(r)
			}
			w := httptest.NewRecorder()
			if tc.json {
				RespondJSONError(w, r, tc.err)
			} else {
				RespondError(w, r, tc.err)
			}
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			testutil.AssertContains(t, w.Body.String(), tc.wantBody)
			if tc.dontWant != "" && strings.Contains(w.Body.String(), tc.dontWant) {
				t.Errorf("body contains %q:\n%s", tc.dontWant, w.Body.String())
			}
		})
	}
}

func TestHealthFailing(t *testing.T) {
	mux := http.NewServeMux()
	h := Health(mux)
	h.RegisterFunc("transport", func() (string, bool) { return "port closed", false })
	h.RegisterFunc("gateway", func() (string, bool) { return "ok", true })

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertEqual(t, w.Code, http.StatusInternalServerError)

	resp := testutil.UnmarshalJSON[HealthResponse](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.OK, false)
	testutil.AssertEqual(t, resp.Checks["transport"], CheckResult{Status: "port closed", OK: false})
	testutil.AssertEqual(t, resp.Checks["gateway"].OK, true)

	// Health returns the same handler for a mux.
	if Health(mux) != h {
		t.Error("Health returned a different handler")
	}
}

func TestRespondJSONUnencodable(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, map[string]any{"temperature": make(chan float64)})
	testutil.AssertEqual(t, w.Code, http.StatusInternalServerError)
	testutil.AssertEqual(t, w.Header().Get("Content-Type"), "application/json")
	resp := testutil.UnmarshalJSON[errorResponse](t, w.Body.Bytes())
	testutil.AssertEqual(t, resp.Status, "error")
	testutil.AssertContains(t, resp.Error, "encoding response")
}
