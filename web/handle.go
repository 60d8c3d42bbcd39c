// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Validatable is implemented by request bodies that can check themselves.
type Validatable interface {
	Validate() error
}

// MaxBodySize is the largest request body [HandleJSON] accepts.
const MaxBodySize = 64 << 10

// ErrTooLarge is returned for request bodies over [MaxBodySize].
const ErrTooLarge StatusErr = http.StatusRequestEntityTooLarge

// HandleJSON returns a handler that decodes the body of non-GET requests
// into Req, validates it if it's [Validatable], calls logic and responds
// with its result.
//
// Bodies that are missing, larger than [MaxBodySize], have unknown fields
// or trailing data are rejected before logic is called. Errors returned by
// logic are sent with [RespondJSONError], so they can carry a status code
// by wrapping a [StatusErr].
func HandleJSON[Req, Resp any](logic func(r *http.Request, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if err := decodeBody(w, r, &req); err != nil {
				RespondJSONError(w, r, err)
				return
			}
		}

		if v, ok := any(req).(Validatable); ok {
			if err := v.Validate(); err != nil {
				RespondJSONError(w, r, fmt.Errorf("%w: validation failed: %v", ErrBadRequest, err))
				return
			}
		}

		resp, err := logic(r, req)
		if err != nil {
			RespondJSONError(w, r, err)
			return
		}
		RespondJSON(w, resp)
	}
}

var errNoBody = fmt.Errorf("%w: request body is required", ErrBadRequest)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errNoBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()

	var tooLarge *http.MaxBytesError
	switch err := dec.Decode(v); {
	case errors.Is(err, io.EOF):
		return errNoBody
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: body is over %d bytes", ErrTooLarge, tooLarge.Limit)
	case err != nil:
		return fmt.Errorf("%w: decoding body: %v", ErrBadRequest, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after body", ErrBadRequest)
	}
	return nil
}
