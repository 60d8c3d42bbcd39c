// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package request makes requests to JSON APIs, such as the one a gateway
// serves with -http.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.astrophena.name/ramses/version"
)

// Params describe a request.
type Params struct {
	Method string
	URL    string
	// Headers are set on the request after the default ones.
	Headers map[string]string
	// Body, if not nil, is sent encoded as JSON.
	Body any
	// HTTPClient is used instead of DefaultClient if set.
	HTTPClient *http.Client
}

// DefaultClient is used by [Make] unless Params.HTTPClient is set.
//
// Commands sent through a gateway may wait for a reply for several seconds,
// so the timeout is generous.
var DefaultClient = &http.Client{
	Timeout: 30 * time.Second,
}

// maxResponseSize limits how much of a response is read.
const maxResponseSize = 8 << 20

// StatusError is returned when a request doesn't get a 200 OK response.
type StatusError struct {
	StatusCode int
	// Message is the "error" field of a JSON error response, if there was
	// one.
	Message string
	// Body is the raw body of the response.
	Body []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Make sends a request and decodes the JSON response into Response. Use
// [json.RawMessage] as Response to get the body undecoded.
func Make[Response any](ctx context.Context, p Params) (Response, error) {
	var resp Response

	var body io.Reader
	if p.Body != nil {
		b, err := json.Marshal(p.Body)
		if err != nil {
			return resp, fmt.Errorf("request: encoding body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return resp, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	httpc := DefaultClient
	if p.HTTPClient != nil {
		httpc = p.HTTPClient
	}
	res, err := httpc.Do(req)
	if err != nil {
		return resp, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return resp, fmt.Errorf("%s %s: reading response: %w", p.Method, p.URL, err)
	}

	if res.StatusCode != http.StatusOK {
		se := &StatusError{StatusCode: res.StatusCode, Body: b}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil {
			se.Message = e.Error
		}
		return resp, fmt.Errorf("%s %s: %w", p.Method, p.URL, se)
	}

	if err := json.Unmarshal(b, &resp); err != nil {
		return resp, fmt.Errorf("%s %s: decoding response: %w", p.Method, p.URL, err)
	}
	return resp, nil
}

func userAgent() string {
	v := version.Version()
	return v.Name + "/" + v.Version
}
