// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

//go:build !linux

package systemd

import (
	"context"
	"net"
)

func socket(context.Context, string) (net.Listener, error) {
	return nil, errNotActivated
}
