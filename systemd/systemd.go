// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package systemd

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.astrophena.name/ramses/cli"
	"go.astrophena.name/ramses/logger"
)

// State is an assignment of the sd_notify protocol. See
// https://www.freedesktop.org/software/systemd/man/latest/sd_notify.html.
type State string

const (
	// Ready tells systemd that the gateway has started.
	Ready State = "READY=1"
	// Stopping tells systemd that the gateway is stopping.
	Stopping State = "STOPPING=1"

	watchdog State = "WATCHDOG=1"
)

// Status describes the gateway in systemctl status.
func Status(status string) State {
	return State("STATUS=" + status)
}

// Notify sends states to systemd in one message. It does nothing when
// NOTIFY_SOCKET is unset, and failures are only logged.
func Notify(ctx context.Context, states ...State) {
	sock := cli.GetEnv(ctx).Getenv("NOTIFY_SOCKET")
	if sock == "" || len(states) == 0 {
		return
	}
	lines := make([]string, len(states))
	for i, s := range states {
		lines[i] = string(s)
	}
	msg := strings.Join(lines, "\n")
	if err := send(sock, msg); err != nil {
		logger.Error(ctx, "sd_notify failed", slog.String("state", msg), logger.Err(err))
	}
}

// ReportStatus sends the result of status every interval, until ctx is
// done.
func ReportStatus(ctx context.Context, interval time.Duration, status func() string) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		Notify(ctx, Status(status()))
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Watchdog pings the systemd watchdog until ctx is done, if the unit has
// WatchdogSec= set.
func Watchdog(ctx context.Context) {
	interval := watchdogInterval(cli.GetEnv(ctx), os.Getpid())
	if interval <= 0 {
		return
	}
	go func() {
		// Ping twice per interval so that a late tick doesn't miss it.
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				Notify(ctx, watchdog)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// watchdogInterval returns the watchdog interval systemd set for process
// pid, or 0 if there is none.
func watchdogInterval(env *cli.Env, pid int) time.Duration {
	if p := env.Getenv("WATCHDOG_PID"); p != "" && p != strconv.Itoa(pid) {
		return 0
	}
	usec, err := strconv.Atoi(env.Getenv("WATCHDOG_USEC"))
	if err != nil || usec <= 0 {
		return 0
	}
	return time.Duration(usec) * time.Microsecond
}
