// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package systemd

import (
	"context"
	"errors"
	"net"
)

var errNotActivated = errors.New("systemd: not socket activated")

// Socket returns the listener systemd passed under name, as set by
// FileDescriptorName= of the socket unit. Unnamed sockets are named
// "unknown". [web.Server] uses it for addresses like "sd-socket:http".
//
// Only Linux has socket activation. Elsewhere Socket always fails.
func Socket(ctx context.Context, name string) (net.Listener, error) {
	return socket(ctx, name)
}
