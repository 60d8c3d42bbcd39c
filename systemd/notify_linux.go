// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

//go:build linux

package systemd

import (
	"net"
	"strings"
)

// send writes msg to the datagram socket sock. A leading "@" means the
// abstract namespace.
func send(sock, msg string) error {
	if rest, ok := strings.CutPrefix(sock, "@"); ok {
		sock = "\x00" + rest
	}
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: sock})
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(msg))
	return err
}
