// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"maps"
	"net/http"
	"slices"
	"sync"
)

// HealthHandler reports the health of a service at /health. It is healthy
// when every registered check is.
type HealthHandler struct {
	mu     sync.RWMutex
	checks map[string]HealthFunc
}

// HealthFunc reports the status of a part of a service, and whether it is
// healthy.
type HealthFunc func() (status string, ok bool)

// HealthResponse is what /health answers with.
type HealthResponse struct {
	OK     bool                   `json:"ok"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

var (
	healthMu       sync.Mutex
	healthHandlers = map[*http.ServeMux]*HealthHandler{}
)

// Health returns the HealthHandler of mux, registering it at GET /health
// the first time.
func Health(mux *http.ServeMux) *HealthHandler {
	healthMu.Lock()
	defer healthMu.Unlock()
	if h, ok := healthHandlers[mux]; ok {
		return h
	}
	h := &HealthHandler{checks: make(map[string]HealthFunc)}
	mux.Handle("GET /health", h)
	healthHandlers[mux] = h
	return h
}

// RegisterFunc adds a check named name. It panics if the name is taken.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.checks[name]; dup {
		panic("web: duplicate health check " + name)
	}
	h.checks[name] = f
}

// ServeHTTP implements the [http.Handler] interface.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := HealthResponse{OK: true}
	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		status, ok := h.checks[name]()
		if resp.Checks == nil {
			resp.Checks = make(map[string]CheckResult)
		}
		resp.Checks[name] = CheckResult{Status: status, OK: ok}
		resp.OK = resp.OK && ok
	}
	if !resp.OK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
	}
	RespondJSON(w, resp)
}
