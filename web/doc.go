// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package web serves the HTTP API and status page of the gateway.

[Server] wraps a mux with request logging, security headers, per-route
Content-Security-Policy ([CSPMux]) and cross-origin protection. It listens
on a TCP address or on a socket passed by systemd, and shuts down when its
context is done, ending open event streams.

Handlers answer with [RespondJSON], and with [RespondJSONError] or
[RespondError] on failure. Wrapping a [StatusErr] picks the status code:

	web.RespondJSONError(w, r, fmt.Errorf("%w: no zone %s", web.ErrNotFound, idx))

[HandleJSON] decodes and validates a request body before calling the
handler, and [Health] serves /health from registered checks.
*/
package web
