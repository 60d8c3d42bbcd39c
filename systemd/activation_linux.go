// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

//go:build linux

package systemd

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"go.astrophena.name/ramses/cli"
)

// listenFDsStart is the first descriptor passed by socket activation.
const listenFDsStart = 3

// activated returns the descriptors systemd passed to process pid, by name.
// A name given twice keeps its first descriptor.
func activated(env *cli.Env, pid int) (map[string]int, error) {
	pidStr := env.Getenv("LISTEN_PID")
	if pidStr == "" {
		return nil, errNotActivated
	}
	p, err := strconv.Atoi(pidStr)
	if err != nil {
		return nil, fmt.Errorf("systemd: bad LISTEN_PID %q: %w", pidStr, err)
	}
	if p != pid {
		return nil, fmt.Errorf("%w: LISTEN_PID is %d, this is %d", errNotActivated, p, pid)
	}

	n, err := strconv.Atoi(env.Getenv("LISTEN_FDS"))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("systemd: bad LISTEN_FDS %q", env.Getenv("LISTEN_FDS"))
	}
	var names []string
	if s := env.Getenv("LISTEN_FDNAMES"); s != "" {
		names = strings.Split(s, ":")
	}
	if names != nil && len(names) != n {
		return nil, fmt.Errorf("systemd: %d names in LISTEN_FDNAMES for %d sockets", len(names), n)
	}

	fds := make(map[string]int, n)
	for i := range n {
		name := "unknown"
		if names != nil {
			name = names[i]
		}
		if _, ok := fds[name]; !ok {
			fds[name] = listenFDsStart + i
		}
	}
	return fds, nil
}

func socket(ctx context.Context, name string) (net.Listener, error) {
	fds, err := activated(cli.GetEnv(ctx), os.Getpid())
	if err != nil {
		return nil, err
	}
	fd, ok := fds[name]
	if !ok {
		return nil, fmt.Errorf("systemd: no socket named %q", name)
	}
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, fmt.Errorf("systemd: descriptor %d of %q is invalid", fd, name)
	}
	// The listener has its own copy of the descriptor.
	defer f.Close()
	return net.FileListener(f)
}
