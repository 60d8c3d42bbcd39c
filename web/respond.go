// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.astrophena.name/ramses/logger"
)

type trustedKey struct{}

// TrustRequest returns r marked as coming from someone allowed to see
// internal errors, such as the operator of the gateway.
func TrustRequest(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), trustedKey{}, true))
}

// IsTrustedRequest reports whether r was marked by [TrustRequest]. Error
// pages of trusted requests show the error that caused them.
func IsTrustedRequest(r *http.Request) bool {
	trusted, _ := r.Context().Value(trustedKey{}).(bool)
	return trusted
}

// StatusErr is an error that carries an HTTP status code. Wrap it to send
// a status other than 500 from [RespondError] and [RespondJSONError]:
//
//	return fmt.Errorf("%w: no zone %s", web.ErrNotFound, idx)
type StatusErr int

func (se StatusErr) Error() string { return strings.ToLower(http.StatusText(int(se))) }

// Status errors used by the gateway API.
const (
	ErrBadRequest          StatusErr = http.StatusBadRequest
	ErrForbidden           StatusErr = http.StatusForbidden
	ErrNotFound            StatusErr = http.StatusNotFound
	ErrInternalServerError StatusErr = http.StatusInternalServerError
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RespondJSON writes v as indented JSON. If v can't be encoded, the client
// gets a 500 error instead.
func RespondJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, &errorResponse{Status: "error", Error: "encoding response: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(b, '\n'))
}

// writeJSON writes an errorResponse, which always encodes.
func writeJSON(w http.ResponseWriter, e *errorResponse) {
	b, _ := json.MarshalIndent(e, "", "  ")
	w.Write(append(b, '\n'))
}

// RespondError sends err as an HTML error page with the status of the
// [StatusErr] it wraps, or 500 if it wraps none. 500 errors are logged.
// The page shows err only to trusted requests, see [TrustRequest].
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	se := status(r, err)
	var cause error
	if IsTrustedRequest(r) {
		cause = err
	}
	var buf bytes.Buffer
	if rerr := errorPage(int(se), http.StatusText(int(se)), cause).Render(r.Context(), &buf); rerr != nil {
		logger.Error(r.Context(), "rendering error page failed", logger.Err(rerr))
		w.WriteHeader(int(se))
		fmt.Fprintf(w, "%d: %s", int(se), http.StatusText(int(se)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(int(se))
	buf.WriteTo(w)
}

// RespondJSONError is like [RespondError], but sends a JSON object with
// the error message, which API clients always get.
func RespondJSONError(w http.ResponseWriter, r *http.Request, err error) {
	se := status(r, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(int(se))
	writeJSON(w, &errorResponse{Status: "error", Error: err.Error()})
}

func status(r *http.Request, err error) StatusErr {
	se := ErrInternalServerError
	errors.As(err, &se)
	if se == ErrInternalServerError {
		logger.Error(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("url", r.URL.Path),
			logger.Err(err),
		)
	}
	return se
}
